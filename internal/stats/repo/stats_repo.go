package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/internal/stats/entity"
	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
)

// singletonID is the only id usage_stats may hold; a CHECK constraint enforces it.
const singletonID = 1

// Counter names one of the usage_stats counter columns.
type Counter string

const (
	PageViews       Counter = "page_views"
	FormSubmissions Counter = "form_submissions"
	FormErrors      Counter = "form_errors"
)

func (c Counter) valid() bool {
	switch c {
	case PageViews, FormSubmissions, FormErrors:
		return true
	}
	return false
}

// StatsRepo provides data access for the usage_stats table.
type StatsRepo struct {
	db sqlx.ExtContext
}

func NewStatsRepo(db sqlx.ExtContext) *StatsRepo { return &StatsRepo{db: db} }

// WithTx returns a copy of the repo bound to tx.
func (r *StatsRepo) WithTx(tx *sqlx.Tx) *StatsRepo { return &StatsRepo{db: tx} }

// EnsureTable creates the usage_stats table if not exists.
func (r *StatsRepo) EnsureTable(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS usage_stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		page_views BIGINT NOT NULL DEFAULT 0 CHECK (page_views >= 0),
		form_submissions BIGINT NOT NULL DEFAULT 0 CHECK (form_submissions >= 0),
		form_errors BIGINT NOT NULL DEFAULT 0 CHECK (form_errors >= 0),
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	if database.IsSQLite(r.db.DriverName()) {
		ddl = `
	CREATE TABLE IF NOT EXISTS usage_stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		page_views INTEGER NOT NULL DEFAULT 0 CHECK (page_views >= 0),
		form_submissions INTEGER NOT NULL DEFAULT 0 CHECK (form_submissions >= 0),
		form_errors INTEGER NOT NULL DEFAULT 0 CHECK (form_errors >= 0),
		last_updated TIMESTAMP NOT NULL
	)`
	}
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// EnsureRow inserts the zeroed singleton row unless it already exists.
// Concurrent callers converge on one row.
func (r *StatsRepo) EnsureRow(ctx context.Context, now time.Time) error {
	q := r.db.Rebind(`INSERT INTO usage_stats (id, page_views, form_submissions, form_errors, last_updated)
		VALUES (?, 0, 0, 0, ?) ON CONFLICT (id) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, q, singletonID, now)
	return err
}

// Get returns the singleton row or sql.ErrNoRows.
func (r *StatsRepo) Get(ctx context.Context) (*entity.Stats, error) {
	q := r.db.Rebind(`SELECT id, page_views, form_submissions, form_errors, last_updated
		FROM usage_stats WHERE id = ?`)
	var row entity.Stats
	if err := sqlx.GetContext(ctx, r.db, &row, q, singletonID); err != nil {
		return nil, err
	}
	return &row, nil
}

// Increment atomically adds one to counter c and refreshes last_updated,
// creating the singleton row on first use. It is a single upsert statement,
// so concurrent increments never overwrite each other.
func (r *StatsRepo) Increment(ctx context.Context, c Counter, now time.Time) error {
	if !c.valid() {
		return fmt.Errorf("unknown stats counter %q", c)
	}
	var views, submissions, errs int64
	switch c {
	case PageViews:
		views = 1
	case FormSubmissions:
		submissions = 1
	case FormErrors:
		errs = 1
	}
	// c is one of the constants above, never caller-provided text
	q := r.db.Rebind(`INSERT INTO usage_stats (id, page_views, form_submissions, form_errors, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET ` + string(c) + ` = usage_stats.` + string(c) + ` + 1, last_updated = excluded.last_updated`)
	_, err := r.db.ExecContext(ctx, q, singletonID, views, submissions, errs, now)
	return err
}
