// Package mysql binds the shared SQL store to go-sql-driver/mysql.
package mysql

import (
	"github.com/orientamada/orientamada/internal/repository/sqlstore"
)

// Dialect implements sqlstore.Dialect for MySQL / Dialecte MySQL
type Dialect struct{}

func (Dialect) Name() string                   { return "mysql" }
func (Dialect) NumberedPlaceholders() bool     { return false }
func (Dialect) ReturningID() bool              { return false }
func (Dialect) TranslateError(err error) error { return handleError(err) }

// Fold ignores case; the utf8mb4 ai collations already ignore accents / Ignore la casse
func (Dialect) Fold(expr string) string { return "LOWER(" + expr + ")" }

// Factory implements DatabaseFactory for MySQL / Implémente DatabaseFactory pour MySQL
type Factory struct {
	sqlstore.Factory
}

// NewFactory creates the MySQL factory / Crée la factory MySQL
func NewFactory() *Factory {
	return &Factory{sqlstore.Factory{Dialect: Dialect{}}}
}
