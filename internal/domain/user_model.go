package domain

import (
	"database/sql"
	"strings"
	"time"
)

// UserRole represents user's role for authorization / Représente le rôle utilisateur pour l'autorisation
type UserRole string

const (
	RoleUser      UserRole = "user"      // Default role for new users / Rôle par défaut pour nouveaux utilisateurs
	RoleModerator UserRole = "moderator" // Moderator with elevated permissions / Modérateur avec permissions élevées
	RoleAdmin     UserRole = "admin"     // Full admin access / Accès administrateur complet
)

// Account providers / Fournisseurs de compte
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// IsValid checks if role is valid / Vérifie si le rôle est valide
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

// User represents domain user entity / Représente l'entité utilisateur du domaine
type User struct {
	BaseModel
	ID                     int64
	Email                  string
	Password               string // Hashed password, empty for Google-only accounts / Mot de passe haché, vide pour les comptes Google
	FirstName              string
	LastName               string
	Role                   UserRole
	Provider               string
	GoogleID               *string
	AvatarURL              string
	EmailVerified          bool
	FailedLoginAttempts    int        // Failed login counter / Compteur d'échecs de connexion
	LockedUntil            *time.Time // Account lock expiry / Expiration du verrouillage du compte
	PasswordResetToken     sql.NullString
	PasswordResetExpiresAt sql.NullTime
}

// FullName joins first and last name / Concatène prénom et nom
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasPassword reports whether the account can log in with credentials / Indique si le compte accepte les identifiants
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// IsLocked checks if account is locked / Vérifie si le compte est verrouillé
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// HasRole checks exact role match / Vérifie la correspondance exacte du rôle
func (u *User) HasRole(role UserRole) bool {
	return u.Role == role
}

// IsAdmin checks admin privileges / Vérifie les privilèges admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsModerator checks moderator privileges / Vérifie les privilèges modérateur
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// HasMinimumRole checks role hierarchy (admin > moderator > user) / Vérifie la hiérarchie des rôles
func (u *User) HasMinimumRole(role UserRole) bool {
	return roleRank[u.Role] >= roleRank[role]
}

var roleRank = map[UserRole]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// RefreshToken represents refresh token entity / Représente l'entité refresh token
type RefreshToken struct {
	Token     string // Hashed token value / Valeur du token hachée
	UserID    int64
	SessionID string // Stable across rotations / Stable entre les rotations
	IssueAt   time.Time
	ExpiresAt time.Time
	IsRevoked bool
	IPHash    string // SHA-256 hash of client IP / Hash SHA-256 de l'IP client
	UAHash    string // SHA-256 hash of User-Agent / Hash SHA-256 du User-Agent
}

// IsTokenExpired checks if token expired / Vérifie si le token est expiré
func (rt *RefreshToken) IsTokenExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsTokenValid checks if token is valid / Vérifie si le token est valide
func (rt *RefreshToken) IsTokenValid() bool {
	return !rt.IsRevoked && !rt.IsTokenExpired()
}

// EmailOTP is a one-time sign-up code; only its hash is stored / Code à usage unique, seul son hash est stocké
type EmailOTP struct {
	ID         int64
	UserID     int64
	CodeHash   string
	ExpiresAt  time.Time
	Attempts   int
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// IsUsable reports whether the code can still be checked / Indique si le code peut encore être vérifié
func (o *EmailOTP) IsUsable(now time.Time, maxAttempts int) bool {
	return o.ConsumedAt == nil && now.Before(o.ExpiresAt) && o.Attempts < maxAttempts
}
