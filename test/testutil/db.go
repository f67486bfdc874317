package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/xxxsen/markport/internal/config"
	"github.com/xxxsen/markport/internal/db"
)

const TestDriver = "sqlite"

// OpenTestDB opens a migrated SQLite database in a temp dir that is removed
// when the test ends.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: TestDriver,
		DSN:    filepath.Join(t.TempDir(), "markport_test.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
