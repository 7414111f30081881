package sqlstore

import (
	"context"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
)

var _ ports.OTPRepository = (*otpRepository)(nil)

type otpRepository struct {
	c conn
}

// Create consumes any pending code before storing the new one / Consomme les codes en attente avant d'insérer
func (r *otpRepository) Create(ctx context.Context, otp *domain.EmailOTP) error {
	ts := now()
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = ts
	}

	if _, err := r.c.exec(ctx, `UPDATE email_otps SET consumed_at = ? WHERE user_id = ? AND consumed_at IS NULL`, ts, otp.UserID); err != nil {
		return err
	}

	id, err := r.c.insert(ctx, `INSERT INTO email_otps (user_id, code_hash, expires_at, attempts, created_at) VALUES (?, ?, ?, ?, ?)`,
		otp.UserID, otp.CodeHash, otp.ExpiresAt.UTC(), otp.Attempts, otp.CreatedAt.UTC())
	if err != nil {
		return err
	}
	otp.ID = id
	return nil
}

func (r *otpRepository) GetActive(ctx context.Context, userID int64) (*domain.EmailOTP, error) {
	query := `SELECT id, user_id, code_hash, expires_at, attempts, consumed_at, created_at
		FROM email_otps
		WHERE user_id = ? AND consumed_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	var o domain.EmailOTP
	err := r.c.scanRow(ctx, query, []any{userID},
		&o.ID, &o.UserID, &o.CodeHash, &o.ExpiresAt, &o.Attempts, &o.ConsumedAt, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ClaimAttempt is a single conditional UPDATE so concurrent guesses cannot exceed the cap
func (r *otpRepository) ClaimAttempt(ctx context.Context, id int64, maxAttempts int) error {
	return r.c.execAffecting(ctx,
		`UPDATE email_otps SET attempts = attempts + 1 WHERE id = ? AND consumed_at IS NULL AND attempts < ?`,
		id, maxAttempts)
}

func (r *otpRepository) Consume(ctx context.Context, id int64, at time.Time) error {
	return r.c.execAffecting(ctx, `UPDATE email_otps SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL`, at.UTC(), id)
}

// LastCreatedAt returns the zero time when the user never received a code / Temps zéro si aucun code
func (r *otpRepository) LastCreatedAt(ctx context.Context, userID int64) (time.Time, error) {
	query := `SELECT created_at FROM email_otps WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	var created time.Time
	err := r.c.scanRow(ctx, query, []any{userID}, &created)
	if isNoRecord(err) {
		return time.Time{}, nil
	}
	return created, err
}

func (r *otpRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.c.exec(ctx, `DELETE FROM email_otps WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
