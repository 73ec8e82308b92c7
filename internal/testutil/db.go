// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-waitlist-go/pkg/database"
)

// NewSQLiteDB opens a SQLite database in a per-test temp directory. The
// connection is closed when the test finishes.
func NewSQLiteDB(t testing.TB) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waitlist.db")
	db, err := database.Connect(database.Config{
		Driver:  database.DriverSQLite,
		DSN:     path,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err, "open sqlite test db")
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
