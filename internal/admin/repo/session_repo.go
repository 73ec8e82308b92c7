package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// EnsureTable creates admin_sessions. Requires the admins table.
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS admin_sessions (
		id TEXT PRIMARY KEY,
		admin_id BIGINT NOT NULL REFERENCES admins (id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`
	if database.IsSQLite(r.db.DriverName()) {
		ddl = `
	CREATE TABLE IF NOT EXISTS admin_sessions (
		id TEXT PRIMARY KEY,
		admin_id INTEGER NOT NULL REFERENCES admins (id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_admin_sessions_expires_at ON admin_sessions (expires_at)`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, s *entity.Session) error {
	q := r.db.Rebind(`INSERT INTO admin_sessions (id, admin_id, created_at, expires_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q, s.ID, s.AdminID, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*entity.Session, error) {
	q := r.db.Rebind(`SELECT id, admin_id, created_at, expires_at FROM admin_sessions WHERE id = ?`)
	var row entity.Session
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM admin_sessions WHERE id = ?`), id)
	return err
}

// DeleteExpired drops sessions whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM admin_sessions WHERE expires_at <= ?`), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
