package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
)

var _ ports.RefreshTokenStore = (*refreshTokenStore)(nil)

// refreshTokenStore keeps only SHA-256 digests of refresh tokens / Ne conserve que les empreintes SHA-256
type refreshTokenStore struct {
	c conn
}

// WithTx returns store with transaction / Retourne le magasin avec transaction
func (s *refreshTokenStore) WithTx(tx *sql.Tx) ports.RefreshTokenStore {
	return &refreshTokenStore{c: conn{db: tx, d: s.c.d}}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Save hashes the token in place and stores it / Hache le token et le stocke
func (s *refreshTokenStore) Save(ctx context.Context, t *domain.RefreshToken) error {
	if t == nil {
		return errors.New("the refresh token is null")
	}
	t.Token = hashToken(t.Token)

	const query = `
	INSERT INTO refresh_tokens (token, user_id, session_id, issue_at, expires_at, is_revoked, ip_hash, ua_hash)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.c.exec(ctx, query,
		t.Token,
		t.UserID,
		t.SessionID,
		t.IssueAt.UTC(),
		t.ExpiresAt.UTC(),
		t.IsRevoked,
		t.IPHash,
		t.UAHash,
	)
	return err
}

func (s *refreshTokenStore) Get(ctx context.Context, tokenString string) (*domain.RefreshToken, error) {
	const query = `
	SELECT token, user_id, session_id, issue_at, expires_at, is_revoked, ip_hash, ua_hash
	FROM refresh_tokens
	WHERE token = ?
	`
	var t domain.RefreshToken
	err := s.c.scanRow(ctx, query, []any{hashToken(tokenString)},
		&t.Token,
		&t.UserID,
		&t.SessionID,
		&t.IssueAt,
		&t.ExpiresAt,
		&t.IsRevoked,
		&t.IPHash,
		&t.UAHash,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *refreshTokenStore) LatestActive(ctx context.Context, userID int64, sessionID string) (*domain.RefreshToken, error) {
	const query = `
	SELECT token, user_id, session_id, issue_at, expires_at, is_revoked, ip_hash, ua_hash
	FROM refresh_tokens
	WHERE user_id = ? AND session_id = ? AND is_revoked = ?
	ORDER BY issue_at DESC
	LIMIT 1
	`
	var t domain.RefreshToken
	err := s.c.scanRow(ctx, query, []any{userID, sessionID, false},
		&t.Token,
		&t.UserID,
		&t.SessionID,
		&t.IssueAt,
		&t.ExpiresAt,
		&t.IsRevoked,
		&t.IPHash,
		&t.UAHash,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *refreshTokenStore) Revoke(ctx context.Context, tokenString string) error {
	_, err := s.c.exec(ctx, `UPDATE refresh_tokens SET is_revoked = ? WHERE token = ?`, true, hashToken(tokenString))
	return err
}

func (s *refreshTokenStore) RevokeSession(ctx context.Context, userID int64, sessionID string) error {
	_, err := s.c.exec(ctx, `UPDATE refresh_tokens SET is_revoked = ? WHERE user_id = ? AND session_id = ?`, true, userID, sessionID)
	return err
}

func (s *refreshTokenStore) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := s.c.exec(ctx, `UPDATE refresh_tokens SET is_revoked = ? WHERE user_id = ?`, true, userID)
	return err
}

// PurgeExpired deletes tokens expired before the cutoff / Supprime les tokens expirés avant la date
func (s *refreshTokenStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.c.exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
