package ports

import (
	"context"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
)

// OTPRepository stores sign-up codes / Stocke les codes d'inscription
type OTPRepository interface {
	// Create stores a new code and invalidates the previous ones / Stocke un code et invalide les précédents
	Create(ctx context.Context, otp *domain.EmailOTP) error
	// GetActive returns the latest unconsumed code / Retourne le dernier code non consommé
	GetActive(ctx context.Context, userID int64) (*domain.EmailOTP, error)
	// ClaimAttempt counts one try while the code is pending and under maxAttempts, ErrNoRecord otherwise
	// Compte un essai tant que le code est actif et sous la limite
	ClaimAttempt(ctx context.Context, id int64, maxAttempts int) error
	Consume(ctx context.Context, id int64, at time.Time) error
	// LastCreatedAt returns when the latest code was issued / Date d'émission du dernier code
	LastCreatedAt(ctx context.Context, userID int64) (time.Time, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
