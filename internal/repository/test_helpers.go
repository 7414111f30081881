package repository

import (
	"database/sql"

	"github.com/orientamada/orientamada/internal/ports"
)

// NewSQLiteAdapter creates a SQLite adapter for tests / Crée un adapteur SQLite pour les tests
func NewSQLiteAdapter(database *sql.DB) *Adapter {
	return NewAdapter(database, "sqlite")
}

// NewSQLiteUser creates SQLite user repository for tests / Crée un repository utilisateur SQLite pour les tests
func NewSQLiteUser(database *sql.DB) ports.UserRepository {
	return NewSQLiteAdapter(database).UserRepository()
}

// NewSQLiteRefreshTokenStore creates SQLite refresh token store for tests / Crée un store de refresh tokens SQLite pour les tests
func NewSQLiteRefreshTokenStore(database *sql.DB) ports.RefreshTokenStore {
	return NewSQLiteAdapter(database).RefreshTokenStore()
}
