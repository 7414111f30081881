package db

import "strings"

// DatabaseType names a supported engine / Nomme un moteur supporté
type DatabaseType string

const (
	SQLite     DatabaseType = "sqlite"
	MySQL      DatabaseType = "mysql"
	PostgreSQL DatabaseType = "postgres"
)

func (dt DatabaseType) String() string { return string(dt) }

// ParseType reads the configured engine name; empty means sqlite / Lit le moteur configuré, vide vaut sqlite
func ParseType(s string) DatabaseType {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case "", "sqlite3":
		return SQLite
	case "postgresql", "pg":
		return PostgreSQL
	default:
		return DatabaseType(t)
	}
}

// IsValid reports whether the engine has a dialect
func (dt DatabaseType) IsValid() bool {
	_, ok := dialects[dt]
	return ok
}
