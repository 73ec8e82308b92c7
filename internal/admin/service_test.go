package admin

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	svc := NewService(db, Config{SessionSecret: "test-secret", SessionTTL: time.Hour}, BcryptHasher{Cost: bcrypt.MinCost})
	require.NoError(t, svc.EnsureSchema(context.Background()))
	return svc, db
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify(hash, "s3cret"))
	assert.False(t, h.Verify(hash, "S3cret"))
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateAdmin(ctx, " root ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "root", a.Username)
	assert.NotEqual(t, "hunter22", a.PasswordHash)

	_, err = svc.CreateAdmin(ctx, "root", "other")
	require.ErrorIs(t, err, ErrAdminExists)

	_, err = svc.CreateAdmin(ctx, "  ", "pw")
	require.ErrorIs(t, err, ErrInvalidAccount)
}

func TestEnsureAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin", "")
	require.NoError(t, err)
	assert.False(t, created, "no password configured")

	created, err = svc.EnsureAdmin(ctx, "admin", "pw")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "other", "pw")
	require.NoError(t, err)
	assert.False(t, created, "accounts already exist")
}

func TestLoginResolveLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin", "correct horse")
	require.NoError(t, err)

	token, sess, err := svc.Login(ctx, "admin", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	id, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Username)
	assert.Equal(t, sess.ID, id.SessionID)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, svc.Logout(ctx, token), "logout twice is not an error")
	require.NoError(t, svc.Logout(ctx, ""))
	require.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin", "right")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, ErrBadCredentials)

	_, _, errUnknown := svc.Login(ctx, "nobody", "right")
	require.ErrorIs(t, errUnknown, ErrBadCredentials)
	assert.Equal(t, err.Error(), errUnknown.Error(), "no hint whether the username exists")
}

func TestResolveRejectsForeignTokens(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "admin", "pw")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "admin", "pw")
	require.NoError(t, err)

	other := NewService(db, Config{SessionSecret: "another-secret"}, BcryptHasher{Cost: bcrypt.MinCost})
	_, err = other.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated, "signature from another key")

	_, err = svc.Resolve(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Resolve(ctx, "not.a.jwt")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveExpiredSession(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a, err := svc.CreateAdmin(ctx, "admin", "pw")
	require.NoError(t, err)

	past := time.Now().UTC().Add(-2 * time.Hour)
	sess := &entity.Session{ID: "expired-session", AdminID: a.ID, CreatedAt: past, ExpiresAt: past.Add(time.Hour)}
	require.NoError(t, svc.sessions.Save(ctx, sess))

	// a token whose claims are still valid but whose session row has lapsed
	sess.ExpiresAt = time.Now().Add(time.Hour)
	token, err := svc.sign(sess)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrUnauthenticated)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM admin_sessions WHERE id = ?`, "expired-session"))
	assert.Zero(t, n, "lapsed session is removed")
}
