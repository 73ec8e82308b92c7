package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
)

// RegistrationRepo provides data access for the registrations table. It runs
// against either the pool or a transaction.
type RegistrationRepo struct {
	db sqlx.ExtContext
}

func NewRegistrationRepo(db sqlx.ExtContext) *RegistrationRepo { return &RegistrationRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *RegistrationRepo) WithTx(tx *sqlx.Tx) *RegistrationRepo { return &RegistrationRepo{db: tx} }

// EnsureTable creates the registrations table and its indexes if they do not
// already exist. The unique index on email is what rejects racing duplicates.
func (r *RegistrationRepo) EnsureTable(ctx context.Context) error {
	tbl := `
	CREATE TABLE IF NOT EXISTS registrations (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		client_address TEXT,
		client_agent TEXT
	)`
	if database.IsSQLite(r.db.DriverName()) {
		tbl = `
	CREATE TABLE IF NOT EXISTS registrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		client_address TEXT,
		client_agent TEXT
	)`
	}
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_email ON registrations (email)`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}

	const idxCreated = `CREATE INDEX IF NOT EXISTS idx_registrations_created_at ON registrations (created_at)`
	if _, err := r.db.ExecContext(ctx, idxCreated); err != nil {
		return err
	}
	return nil
}

// Create inserts reg and fills in its storage-assigned ID.
func (r *RegistrationRepo) Create(ctx context.Context, reg *entity.Registration) error {
	q := r.db.Rebind(`INSERT INTO registrations (email, full_name, created_at, client_address, client_agent)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	return sqlx.GetContext(ctx, r.db, &reg.ID, q, reg.Email, reg.FullName, reg.CreatedAt, reg.ClientAddress, reg.ClientAgent)
}

// GetByEmail returns the registration for a normalized email or sql.ErrNoRows.
func (r *RegistrationRepo) GetByEmail(ctx context.Context, email string) (*entity.Registration, error) {
	q := r.db.Rebind(`SELECT id, email, full_name, created_at, client_address, client_agent
		FROM registrations WHERE email = ?`)
	var row entity.Registration
	if err := sqlx.GetContext(ctx, r.db, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns every registration, newest first.
func (r *RegistrationRepo) List(ctx context.Context) ([]entity.Registration, error) {
	const q = `SELECT id, email, full_name, created_at, client_address, client_agent
		FROM registrations ORDER BY created_at DESC, id DESC`
	rows := []entity.Registration{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of stored registrations.
func (r *RegistrationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM registrations`); err != nil {
		return 0, err
	}
	return n, nil
}
