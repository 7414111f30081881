// Package postgres binds the shared SQL store to lib/pq.
package postgres

import (
	"github.com/orientamada/orientamada/internal/repository/sqlstore"
)

// Dialect implements sqlstore.Dialect for PostgreSQL / Dialecte PostgreSQL
type Dialect struct{}

func (Dialect) Name() string                   { return "postgres" }
func (Dialect) NumberedPlaceholders() bool     { return true }
func (Dialect) ReturningID() bool              { return true }
func (Dialect) TranslateError(err error) error { return handleError(err) }

// Fold ignores case / Ignore la casse
func (Dialect) Fold(expr string) string { return "LOWER(CAST(" + expr + " AS TEXT))" }

// Factory implements DatabaseFactory for PostgreSQL / Implémente DatabaseFactory pour PostgreSQL
type Factory struct {
	sqlstore.Factory
}

// NewFactory creates the PostgreSQL factory / Crée la factory PostgreSQL
func NewFactory() *Factory {
	return &Factory{sqlstore.Factory{Dialect: Dialect{}}}
}
