package ports

import (
	"context"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
)

// UserReader reads user data / Lit les données utilisateur
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByEmail matches case-insensitively / Recherche insensible à la casse
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	// List retrieves paginated users / Récupère les utilisateurs paginés
	List(ctx context.Context, offset, limit int) ([]*domain.User, int, error)
	CountUsers(ctx context.Context) (int, error)
}

// UserWriter creates and deletes users / Crée et supprime les utilisateurs
type UserWriter interface {
	// Create inserts the user; the first account becomes admin / Insère l'utilisateur, le premier devient admin
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	// LinkGoogleAccount attaches a Google identity and verifies the email / Rattache une identité Google
	LinkGoogleAccount(ctx context.Context, userID int64, googleID, avatarURL string) error
}

// EmailVerificationRepository marks addresses as verified / Marque les adresses comme vérifiées
type EmailVerificationRepository interface {
	MarkEmailVerified(ctx context.Context, userID int64) error
}

// AccountSecurityRepository manages account security / Gère la sécurité des comptes
type AccountSecurityRepository interface {
	IncrementFailedAttempts(ctx context.Context, userID int64) error
	ResetFailedAttempts(ctx context.Context, userID int64) error
	LockAccount(ctx context.Context, userID int64, until time.Time) error
	// WithTx returns repository with transaction context / Retourne le référentiel avec transaction
	WithTx(dbtx DBTX) AccountSecurityRepository
}

// RoleRepository manages user roles / Gère les rôles des utilisateurs
type RoleRepository interface {
	UpdateRole(ctx context.Context, userID int64, role string) error
}

// PermissionRepository manages permissions / Gère les permissions
type PermissionRepository interface {
	GetPermissionsForRole(ctx context.Context, role string) ([]domain.Permission, error)
	UserHasPermission(ctx context.Context, userID int64, permission domain.Permission) (bool, error)
	AddPermissionToRole(ctx context.Context, role string, permission domain.Permission) error
	RemovePermissionFromRole(ctx context.Context, role string, permission domain.Permission) error
}

// PasswordResetRepository manages password resets / Gère les réinitialisations de mot de passe
type PasswordResetRepository interface {
	SetPasswordResetToken(ctx context.Context, email string, token string, expiresAt time.Time) error
	GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID int64, hashedPassword string) error
	ClearPasswordResetToken(ctx context.Context, userID int64) error
}

// UserStatsRepository aggregates accounts / Agrège les comptes
type UserStatsRepository interface {
	CountByRole(ctx context.Context) (map[domain.UserRole]int, error)
	CountVerified(ctx context.Context) (int, error)
}

// UserRepository is composite interface for all user operations / Interface composite pour toutes les opérations utilisateur
type UserRepository interface {
	UserReader
	UserWriter
	EmailVerificationRepository
	AccountSecurityRepository
	RoleRepository
	PermissionRepository
	PasswordResetRepository
	UserStatsRepository
}
