package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
)

// AdminRepo provides data access for the admins table using sqlx.
type AdminRepo struct {
	db *sqlx.DB
}

func NewAdminRepo(db *sqlx.DB) *AdminRepo { return &AdminRepo{db: db} }

// EnsureTable creates the admins table if not exists (idempotent).
func (r *AdminRepo) EnsureTable(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS admins (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	if database.IsSQLite(r.db.DriverName()) {
		ddl = `
	CREATE TABLE IF NOT EXISTS admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`
	}
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new admin row and returns its ID.
func (r *AdminRepo) Create(ctx context.Context, a *entity.Admin) (int64, error) {
	q := r.db.Rebind(`INSERT INTO admins (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &a.ID, q, a.Username, a.PasswordHash, a.CreatedAt); err != nil {
		return 0, err
	}
	return a.ID, nil
}

// GetByUsername fetches by username or returns sql.ErrNoRows.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*entity.Admin, error) {
	q := r.db.Rebind(`SELECT id, username, password_hash, created_at FROM admins WHERE username = ?`)
	var row entity.Admin
	if err := r.db.GetContext(ctx, &row, q, username); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches by id or returns sql.ErrNoRows.
func (r *AdminRepo) GetByID(ctx context.Context, id int64) (*entity.Admin, error) {
	q := r.db.Rebind(`SELECT id, username, password_hash, created_at FROM admins WHERE id = ?`)
	var row entity.Admin
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Count returns the number of admin accounts.
func (r *AdminRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, err
	}
	return n, nil
}
