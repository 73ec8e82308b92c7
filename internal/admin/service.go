package admin

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin/repo"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/utilities"
)

const tokenIssuer = "waitlist-admin"

type Config struct {
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	CookieSecure      bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	BootstrapUsername string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	BootstrapPassword string        `env:"ADMIN_PASSWORD"`
}

// ConfigFromEnv reads admin and session settings from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse admin env: %w", err)
	}
	return cfg, nil
}

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var (
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAdminExists     = errors.New("admin already exists")
	ErrInvalidAccount  = errors.New("username and password are required")
)

// Identity is the authenticated admin attached to a request.
type Identity struct {
	AdminID   int64
	Username  string
	SessionID string
	ExpiresAt time.Time
}

// Service handles admin accounts and their sessions. A session lives in
// admin_sessions; the browser only holds a signed token naming it.
type Service struct {
	admins   *repo.AdminRepo
	sessions *repo.SessionRepo
	hasher   PasswordHasher
	secret   []byte
	ttl      time.Duration

	dummyOnce sync.Once
	dummyHash string
}

func NewService(db *sqlx.DB, cfg Config, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		// tokens signed with a random key stop verifying after a restart
		secret = make([]byte, 32)
		_, _ = rand.Read(secret)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		admins:   repo.NewAdminRepo(db),
		sessions: repo.NewSessionRepo(db),
		hasher:   hasher,
		secret:   secret,
		ttl:      ttl,
	}
}

// EnsureSchema creates the admins and admin_sessions tables.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if err := s.admins.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure admins table: %w", err)
	}
	if err := s.sessions.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure admin_sessions table: %w", err)
	}
	return nil
}

// CreateAdmin hashes password and stores a new account.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (*entity.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidAccount
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &entity.Admin{Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if _, err := s.admins.Create(ctx, a); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	return a, nil
}

// EnsureAdmin provisions the first account when the table is empty. It
// reports whether an account was created; with no password configured
// nothing is created.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 || password == "" {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, username, password); err != nil {
		if errors.Is(err, ErrAdminExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Login checks credentials and opens a session. It returns the signed
// session token and the session. Unknown usernames and wrong passwords both
// yield ErrBadCredentials and cost one bcrypt comparison.
func (s *Service) Login(ctx context.Context, username, password string) (string, *entity.Session, error) {
	username = strings.TrimSpace(username)
	a, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.Verify(s.dummy(), password)
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("load admin: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return "", nil, ErrBadCredentials
	}

	now := time.Now().UTC()
	_, _ = s.sessions.DeleteExpired(ctx, now)

	sess := &entity.Session{
		ID:        utilities.NewKSUID(),
		AdminID:   a.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("save session: %w", err)
	}
	token, err := s.sign(sess)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Resolve maps a session token to the admin identity. Any token that does
// not name a live session yields ErrUnauthenticated; other errors are
// storage failures.
func (s *Service) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.parse(token, true)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		_ = s.sessions.Delete(ctx, sess.ID)
		return nil, ErrUnauthenticated
	}
	if strconv.FormatInt(sess.AdminID, 10) != claims.Subject {
		return nil, ErrUnauthenticated
	}
	a, err := s.admins.GetByID(ctx, sess.AdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	return &Identity{AdminID: a.ID, Username: a.Username, SessionID: sess.ID, ExpiresAt: sess.ExpiresAt}, nil
}

// Logout ends the session named by token. Unknown, expired or already
// cleared tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parse(token, false)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) sign(sess *entity.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   strconv.FormatInt(sess.AdminID, 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// parse verifies the token signature. Claim validation (expiry, issuer) is
// skipped when validate is false so logout can still clear stale sessions.
func (s *Service) parse(token string, validate bool) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if validate {
		opts = append(opts, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("session token without id")
	}
	return claims, nil
}

// dummy returns a hash to compare against when the username is unknown, so
// both failure paths take comparable time.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("waitlist-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
