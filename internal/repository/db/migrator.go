package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source
)

// Migrator applies the versioned SQL files of one dialect / Applique les migrations SQL d'un dialecte
// It is never closed: closing migrate would close the shared *sql.DB.
type Migrator struct {
	m      *migrate.Migrate
	dbType DatabaseType
}

// NewMigrator binds the migration files in dir to the database / Lie les fichiers de migration à la BD
func NewMigrator(database *sql.DB, dbType DatabaseType, dir string) (*Migrator, error) {
	d, err := lookup(dbType)
	if err != nil {
		return nil, err
	}

	driver, err := d.migrate(database)
	if err != nil {
		return nil, fmt.Errorf("could not create %s migration driver: %w", dbType, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, d.migrateName, driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}

	return &Migrator{m: m, dbType: dbType}, nil
}

// Up applies all pending migrations / Applique toutes les migrations en attente
func (mg *Migrator) Up() error {
	slog.Info("applying database migrations", "type", mg.dbType)
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Steps migrates n steps, down when n is negative / Migre de n étapes, vers le bas si n < 0
func (mg *Migrator) Steps(n int) error {
	if err := mg.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps %d failed: %w", n, err)
	}
	return nil
}

// Version reports the applied version; zero when none / Version appliquée, zéro si aucune
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
