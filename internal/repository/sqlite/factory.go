// Package sqlite binds the shared SQL store to modernc.org/sqlite.
package sqlite

import (
	"github.com/orientamada/orientamada/internal/repository/sqlstore"
)

// Dialect implements sqlstore.Dialect for SQLite / Dialecte SQLite
type Dialect struct{}

func (Dialect) Name() string                   { return "sqlite" }
func (Dialect) NumberedPlaceholders() bool     { return false }
func (Dialect) ReturningID() bool              { return false }
func (Dialect) TranslateError(err error) error { return handleError(err) }

// Fold strips case and accents with a registered function / Ignore casse et accents
func (Dialect) Fold(expr string) string { return foldFunc + "(" + expr + ")" }

// Factory implements DatabaseFactory for SQLite / Implémente DatabaseFactory pour SQLite
// The compile-time check is in adapter.go to avoid import cycles
type Factory struct {
	sqlstore.Factory
}

// NewFactory creates the SQLite factory / Crée la factory SQLite
func NewFactory() *Factory {
	return &Factory{sqlstore.Factory{Dialect: Dialect{}}}
}
