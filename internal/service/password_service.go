package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

//go:embed templates/password_reset_email.html
var passwordResetTemplateFS embed.FS

// resetTokenTTL is how long a reset link stays valid / Durée de validité du lien
const resetTokenTTL = time.Hour

// PasswordService handles password operations / Gère les opérations de mot de passe
type PasswordService struct {
	userReader   ports.UserReader
	passwordRepo ports.PasswordResetRepository
	refreshStore ports.RefreshTokenStore
	emailSender  ports.EmailSender
	conf         *config.Config
	template     *template.Template
	uniformDelay time.Duration
	sends        sync.WaitGroup
}

// NewPasswordService creates a new password management service instance.
// Returns error if template parsing fails / Retourne une erreur si le parsing du template échoue
func NewPasswordService(
	repo ports.UserRepository,
	refreshStore ports.RefreshTokenStore,
	emailSender ports.EmailSender,
	conf *config.Config,
) (*PasswordService, error) {
	tmpl, err := template.ParseFS(passwordResetTemplateFS, "templates/password_reset_email.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse password reset template: %w", err)
	}

	return &PasswordService{
		userReader:   repo,
		passwordRepo: repo,
		refreshStore: refreshStore,
		emailSender:  emailSender,
		conf:         conf,
		template:     tmpl,
		uniformDelay: 200 * time.Millisecond,
	}, nil
}

// Close waits for pending emails / Attend les envois en cours
func (s *PasswordService) Close() {
	s.sends.Wait()
}

func (s *PasswordService) pad() {
	if s.uniformDelay > 0 {
		time.Sleep(s.uniformDelay)
	}
}

// RequestPasswordReset initiates password reset (timing-safe) / Démarre la réinitialisation du mot de passe (sécurisé)
func (s *PasswordService) RequestPasswordReset(ctx context.Context, email string) {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		s.pad()
		return
	}

	user, err := s.userReader.GetByEmail(ctx, email)
	if err != nil || !user.HasPassword() {
		s.pad()
		return
	}

	// A valid link is already out
	if user.PasswordResetToken.Valid && user.PasswordResetExpiresAt.Valid && time.Now().Before(user.PasswordResetExpiresAt.Time) {
		s.pad()
		return
	}

	resetToken := uuid.NewString()
	expiresAt := time.Now().Add(resetTokenTTL)

	if err := s.passwordRepo.SetPasswordResetToken(ctx, email, resetToken, expiresAt); err != nil {
		slog.Error("failed to set password reset token", "email", email, "err", err)
		return
	}

	s.sends.Add(1)
	go s.sendPasswordResetEmailAsync(user, resetToken)
}

// sendPasswordResetEmailAsync sends password reset email async / Envoie l'email de réinitialisation de façon asynchrone
func (s *PasswordService) sendPasswordResetEmailAsync(user *domain.User, resetToken string) {
	defer s.sends.Done()

	// Create context with timeout to prevent goroutine leaks
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.conf.Server.FrontendURL, resetToken)

	data := struct {
		Email    string
		ResetURL string
	}{
		Email:    user.Email,
		ResetURL: resetURL,
	}

	var body bytes.Buffer
	if err := s.template.Execute(&body, data); err != nil {
		slog.Error("failed to render password reset email template", "err", err)
		return
	}

	err := s.emailSender.Send(ctx, user.Email, "Réinitialisation de votre mot de passe OrientaMada", body.String())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Error("password reset email send timed out", "email", user.Email, "timeout", "30s")
		} else {
			slog.Error("failed to send password reset email", "email", user.Email, "err", err)
		}
	}
}

// ResetPassword completes password reset using token / Finalise la réinitialisation du mot de passe via token
func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	user, err := s.passwordRepo.GetByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return ErrInvalidResetToken
		}
		return apperr.FromRepository(err, "user", apperr.OpRead)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.conf.Security.BcryptCost)
	if err != nil {
		slog.Error("failed to hash password", "err", err)
		return apperr.Internal(err)
	}

	if err := s.passwordRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		slog.Error("failed to update password", "user_id", user.ID, "err", err)
		return apperr.Internal(err)
	}

	// Clear the reset token (prevent reuse)
	if err := s.passwordRepo.ClearPasswordResetToken(ctx, user.ID); err != nil {
		slog.Error("failed to clear password reset token", "user_id", user.ID, "err", err)
	}

	// Revoke all refresh tokens to force re-login
	if err := s.refreshStore.RevokeAllForUser(ctx, user.ID); err != nil {
		slog.Error("failed to revoke refresh tokens after password reset", "user_id", user.ID, "err", err)
	}

	return nil
}

// ChangePassword allows password change with current password verification / Permet le changement de mot de passe avec vérification
func (s *PasswordService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.userReader.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if !user.HasPassword() {
		return ErrPasswordlessUser
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}

	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	// Prevent password reuse
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(newPassword)); err == nil {
		return ErrPasswordReused
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.conf.Security.BcryptCost)
	if err != nil {
		slog.Error("failed to hash new password", "err", err)
		return apperr.Internal(err)
	}

	if err := s.passwordRepo.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		slog.Error("failed to update password", "user_id", userID, "err", err)
		return apperr.Internal(err)
	}

	// Revoke all refresh tokens to force re-login
	if err := s.refreshStore.RevokeAllForUser(ctx, userID); err != nil {
		slog.Error("failed to revoke refresh tokens after password change", "user_id", userID, "err", err)
	}

	return nil
}
