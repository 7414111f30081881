package repository

import (
	"database/sql"

	"github.com/orientamada/orientamada/internal/ports"
)

// DatabaseFactory must be implemented by each database package / Doit être implémenté par chaque package de BD
// Adding a repository here forces every database package to provide it.
// Ajouter un repository ici oblige chaque package de BD à le fournir.
type DatabaseFactory interface {
	// NewUserRepository creates user repository / Crée le repository utilisateur
	NewUserRepository(db *sql.DB) ports.UserRepository

	// NewRefreshTokenStore creates refresh token store / Crée le store de refresh tokens
	NewRefreshTokenStore(db *sql.DB) ports.RefreshTokenStore

	// NewOTPRepository creates the email verification code store / Crée le store des codes de vérification
	NewOTPRepository(db *sql.DB) ports.OTPRepository

	// NewCatalogRepositories creates the reference data repositories / Crée les repositories des référentiels
	NewCatalogRepositories(db *sql.DB) ports.CatalogRepositories

	NewReviewRepository(db *sql.DB) ports.ReviewRepository
	NewStatsRepository(db *sql.DB) ports.StatsRepository
	NewNameIndex(db *sql.DB) ports.NameIndex
}
