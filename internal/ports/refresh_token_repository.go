package ports

import (
	"context"
	"database/sql"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
)

// RefreshTokenStore manages refresh tokens / Gère les tokens de rafraîchissement
type RefreshTokenStore interface {
	// Save hashes and stores the token / Hache et stocke le token
	Save(ctx context.Context, token *domain.RefreshToken) error
	// Get retrieves a token by its clear value / Récupère le token par sa valeur en clair
	Get(ctx context.Context, tokenString string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenString string) error
	// RevokeSession revokes every token of one session / Révoque tous les tokens d'une session
	RevokeSession(ctx context.Context, userID int64, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	// LatestActive returns the newest unrevoked token of a session / Retourne le dernier token actif d'une session
	LatestActive(ctx context.Context, userID int64, sessionID string) (*domain.RefreshToken, error)
	// PurgeExpired deletes tokens expired before the given time / Supprime les tokens expirés
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
	WithTx(tx *sql.Tx) RefreshTokenStore
}
