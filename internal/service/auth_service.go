package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
	"github.com/orientamada/orientamada/internal/service/auth"
	"golang.org/x/crypto/bcrypt"
)

// Refresh outcome labels / Libellés des résultats de rafraîchissement
const (
	refreshSuccess = "success"
	refreshInvalid = "invalid"
	refreshRevoked = "revoked"
	refreshExpired = "expired"
	refreshBinding = "binding_failure"
	refreshRaced   = "superseded"
)

// Window in which a rotated token replayed by the same client counts as a concurrent refresh
const refreshReuseGrace = 30 * time.Second

// AuthService handles authentication operations / Gère les opérations d'authentification
type AuthService struct {
	userReader   ports.UserReader
	security     ports.AccountSecurityRepository
	refreshStore ports.RefreshTokenStore
	conf         *config.Config
	db           *sql.DB
	locks        *userLocks
	metrics      AuthMetricsRecorder
}

// AuthMetricsRecorder records auth metrics / Enregistre les métriques d'authentification
type AuthMetricsRecorder interface {
	RecordAccountLockout()
	RecordLoginAttempt(status string)
	RecordTokenRefresh(status string)
}

// Session is an authenticated user with a fresh token pair / Utilisateur authentifié avec ses tokens
type Session struct {
	User   *domain.User
	Tokens *auth.TokenPair
}

// ClientBinding ties a refresh token to the client that received it / Lie un token au client
type ClientBinding struct {
	IPHash string
	UAHash string
}

// NewAuthService creates authentication service instance / Crée une instance de service d'authentification
func NewAuthService(
	repo ports.UserRepository,
	refreshStore ports.RefreshTokenStore,
	conf *config.Config,
	db *sql.DB,
	metrics AuthMetricsRecorder,
) *AuthService {
	return &AuthService{
		userReader:   repo,
		security:     repo,
		refreshStore: refreshStore,
		conf:         conf,
		db:           db,
		locks:        newUserLocks(15 * time.Minute),
		metrics:      metrics,
	}
}

// Close stops the lock cleanup goroutine / Arrête le nettoyage des verrous
func (s *AuthService) Close() {
	s.locks.close()
}

// Login authenticates user and opens a session / Authentifie l'utilisateur et ouvre une session
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientBinding) (*Session, error) {
	user, err := s.userReader.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNoRecord) {
			return nil, apperr.FromRepository(err, "user", apperr.OpRead)
		}
		// Same cost as a real check so unknown emails are not revealed
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.metrics.RecordLoginAttempt("failure")
		return nil, ErrInvalidCredentials
	}

	if user.IsLocked() {
		s.metrics.RecordLoginAttempt("locked")
		return nil, ErrAccountLocked.Withf("account locked due to multiple failed login attempts. Try again in %s",
			formatLockoutDuration(time.Until(*user.LockedUntil)))
	}

	if !user.HasPassword() {
		s.metrics.RecordLoginAttempt("failure")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		newFailedAttempts := user.FailedLoginAttempts + 1

		if newFailedAttempts >= s.conf.Security.MaxFailedAttempts {
			lockedUntil := time.Now().Add(s.conf.Security.LockoutDuration)
			if err := s.security.LockAccount(ctx, user.ID, lockedUntil); err != nil {
				slog.Error("failed to lock account", "user_id", user.ID, "err", err)
			}
			s.metrics.RecordAccountLockout()
			s.metrics.RecordLoginAttempt("locked")
			return nil, ErrAccountLocked.Withf("account locked due to multiple failed login attempts. Try again in %s",
				formatLockoutDuration(s.conf.Security.LockoutDuration))
		}

		if err := s.security.IncrementFailedAttempts(ctx, user.ID); err != nil {
			slog.Error("failed to record failed login attempt", "user_id", user.ID, "err", err)
		}

		s.metrics.RecordLoginAttempt("failure")
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		s.metrics.RecordLoginAttempt("unverified")
		return nil, ErrEmailNotVerified
	}

	session, err := s.OpenSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLoginAttempt("success")
	return session, nil
}

// dummyHash is compared against when the email is unknown / Comparé quand l'email est inconnu
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("orientamada-timing-equalizer"), bcrypt.DefaultCost)

// OpenSession issues a token pair for an already authenticated user / Émet les tokens d'un utilisateur authentifié
func (s *AuthService) OpenSession(ctx context.Context, user *domain.User, client ClientBinding) (*Session, error) {
	userLock := s.locks.get(user.ID)
	userLock.Lock()
	defer userLock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to start transaction for login", "err", err)
		return nil, apperr.Internal(err)
	}
	defer tx.Rollback()

	txSecurityRepo := s.security.WithTx(tx)
	txRefreshStore := s.refreshStore.WithTx(tx)

	if s.conf.Auth.SingleSession {
		if err := txRefreshStore.RevokeAllForUser(ctx, user.ID); err != nil {
			slog.Error("failed to revoke user tokens during login", "err", err)
			return nil, apperr.Internal(err)
		}
	}

	tokenPair, err := s.issue(ctx, txRefreshStore, user, uuid.NewString(), client)
	if err != nil {
		return nil, err
	}

	if err := txSecurityRepo.ResetFailedAttempts(ctx, user.ID); err != nil {
		slog.Error("failed to reset failed login attempts", "user_id", user.ID, "err", err)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit login transaction", "err", err)
		return nil, apperr.Internal(err)
	}

	return &Session{User: user, Tokens: tokenPair}, nil
}

// issue signs a pair and stores the refresh token / Signe une paire et stocke le refresh token
func (s *AuthService) issue(ctx context.Context, store ports.RefreshTokenStore, user *domain.User, sessionID string, client ClientBinding) (*auth.TokenPair, error) {
	tokenPair, err := auth.GenerateTokenPair(
		user.ID,
		string(user.Role),
		sessionID,
		s.conf.Auth.JWTSecret,
		s.conf.Auth.AccessTokenDuration,
		s.conf.Auth.RefreshTokenDuration,
	)
	if err != nil {
		slog.Error("failed to generate token pair", "err", err)
		return nil, apperr.Internal(err)
	}

	refreshToken := &domain.RefreshToken{
		Token:     tokenPair.RefreshToken,
		UserID:    user.ID,
		SessionID: sessionID,
		IssueAt:   time.Now(),
		ExpiresAt: tokenPair.RefreshExpiresAt,
		IPHash:    client.IPHash,
		UAHash:    client.UAHash,
	}
	if err := store.Save(ctx, refreshToken); err != nil {
		slog.Error("failed to save refresh token", "err", err)
		return nil, apperr.Internal(err)
	}
	return tokenPair, nil
}

// Refresh validates and rotates a refresh token within its session / Valide et renouvelle le refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientBinding) (*Session, error) {
	if refreshToken == "" {
		s.metrics.RecordTokenRefresh(refreshInvalid)
		return nil, ErrSessionExpired
	}

	tokenRecord, err := s.refreshStore.Get(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, repository.ErrNoRecord) {
			slog.Error("failed to load refresh token", "err", err)
		}
		s.metrics.RecordTokenRefresh(refreshInvalid)
		return nil, ErrSessionExpired
	}

	// Read before the transaction: the store may hold a single connection
	user, err := s.userReader.GetByID(ctx, tokenRecord.UserID)
	if err != nil {
		s.metrics.RecordTokenRefresh(refreshInvalid)
		return nil, ErrSessionExpired
	}

	userLock := s.locks.get(tokenRecord.UserID)
	userLock.Lock()
	defer userLock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to start transaction for token refresh", "err", err)
		return nil, apperr.Internal(err)
	}
	defer tx.Rollback()

	txRefreshStore := s.refreshStore.WithTx(tx)

	// Re-read under the lock so concurrent rotations see the revocation
	tokenRecord, err = txRefreshStore.Get(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(refreshInvalid)
		return nil, ErrSessionExpired
	}

	if tokenRecord.IsRevoked {
		if s.rotatedConcurrently(ctx, txRefreshStore, tokenRecord, client) {
			slog.Info("rotated refresh token replayed by a concurrent request", "user_id", tokenRecord.UserID, "session_id", tokenRecord.SessionID)
			s.metrics.RecordTokenRefresh(refreshRaced)
			return nil, ErrRefreshSuperseded
		}
		// A rotated token came back: the session is compromised
		if err := txRefreshStore.RevokeSession(ctx, tokenRecord.UserID, tokenRecord.SessionID); err == nil {
			_ = tx.Commit()
		}
		slog.Warn("revoked refresh token reused", "user_id", tokenRecord.UserID, "session_id", tokenRecord.SessionID)
		s.metrics.RecordTokenRefresh(refreshRevoked)
		return nil, ErrSessionExpired
	}

	if tokenRecord.IsTokenExpired() {
		s.metrics.RecordTokenRefresh(refreshExpired)
		return nil, ErrSessionExpired
	}

	if tokenRecord.IPHash != client.IPHash || tokenRecord.UAHash != client.UAHash {
		slog.Warn("refresh token binding validation failed",
			"user_id", tokenRecord.UserID,
			"ip_match", tokenRecord.IPHash == client.IPHash,
			"ua_match", tokenRecord.UAHash == client.UAHash,
		)
		s.metrics.RecordTokenRefresh(refreshBinding)
		return nil, ErrSessionExpired
	}

	if err := txRefreshStore.Revoke(ctx, refreshToken); err != nil {
		slog.Error("failed to revoke old refresh token", "err", err)
		return nil, apperr.Internal(err)
	}

	tokenPair, err := s.issue(ctx, txRefreshStore, user, tokenRecord.SessionID, client)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit token refresh transaction", "err", err)
		return nil, apperr.Internal(err)
	}

	s.metrics.RecordTokenRefresh(refreshSuccess)
	return &Session{User: user, Tokens: tokenPair}, nil
}

// rotatedConcurrently reports whether the revoked token was replaced within the grace window
// by a live token of the same session and client / Vrai si le token vient d'être remplacé pour le même client
func (s *AuthService) rotatedConcurrently(ctx context.Context, store ports.RefreshTokenStore, revoked *domain.RefreshToken, client ClientBinding) bool {
	if revoked.IPHash != client.IPHash || revoked.UAHash != client.UAHash {
		return false
	}
	successor, err := store.LatestActive(ctx, revoked.UserID, revoked.SessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNoRecord) {
			slog.Error("failed to load session successor token", "err", err)
		}
		return false
	}
	if successor.IsTokenExpired() || successor.IssueAt.Before(revoked.IssueAt) {
		return false
	}
	if successor.IPHash != client.IPHash || successor.UAHash != client.UAHash {
		return false
	}
	return time.Since(successor.IssueAt) <= refreshReuseGrace
}

// LogoutRequest identifies the session to close / Identifie la session à fermer
type LogoutRequest struct {
	UserID       int64  // From a valid access token, 0 otherwise
	SessionID    string // From the userSession cookie or the sid claim
	RefreshToken string // Used when the access token has expired
	All          bool   // Close every session of the user
}

// Logout revokes the current session or all of them / Révoque la session courante ou toutes
func (s *AuthService) Logout(ctx context.Context, req LogoutRequest) error {
	userID, sessionID := req.UserID, req.SessionID

	if req.RefreshToken != "" && (userID == 0 || sessionID == "") {
		if record, err := s.refreshStore.Get(ctx, req.RefreshToken); err == nil {
			if userID == 0 {
				userID = record.UserID
			}
			if sessionID == "" && record.UserID == userID {
				sessionID = record.SessionID
			}
		}
	}

	if userID == 0 {
		// Nothing identifies a session; clearing cookies is enough
		return nil
	}

	if req.All {
		return s.RevokeAllTokens(ctx, userID)
	}
	if sessionID == "" {
		return nil
	}

	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.refreshStore.RevokeSession(ctx, userID, sessionID); err != nil {
		slog.Error("failed to revoke session", "err", err, "user_id", userID)
		return apperr.Internal(err)
	}
	return nil
}

// RevokeAllTokens revokes all refresh tokens for a user / Révoque tous les refresh tokens d'un utilisateur
func (s *AuthService) RevokeAllTokens(ctx context.Context, userID int64) error {
	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.refreshStore.RevokeAllForUser(ctx, userID); err != nil {
		slog.Error("failed to revoke tokens", "err", err, "user_id", userID)
		return apperr.Internal(err)
	}

	slog.Info("all refresh tokens revoked", "user_id", userID)
	return nil
}

// ValidateAccessToken parses an access token / Analyse un token d'accès
func (s *AuthService) ValidateAccessToken(token string) (*auth.CustomClaims, error) {
	return auth.ValidateJWT(token, s.conf.Auth.JWTSecret)
}
