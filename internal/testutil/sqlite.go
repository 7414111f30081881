// Package testutil opens migrated in-memory databases for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/orientamada/orientamada/internal/repository/db"
	_ "modernc.org/sqlite"
)

// MigrationsDir returns the sqlite migration directory of the repository / Répertoire des migrations sqlite
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "sqlite")
}

// NewSQLiteDB opens an in-memory database with the full schema / Ouvre une BD mémoire avec le schéma complet
// A single connection keeps every query on the same in-memory database.
func NewSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	database, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	migrator, err := db.NewMigrator(database, db.SQLite, MigrationsDir())
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}
