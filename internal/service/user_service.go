package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles user management operations / Gère les opérations de gestion des utilisateurs
type UserService struct {
	reader       ports.UserReader
	writer       ports.UserWriter
	roleRepo     ports.RoleRepository
	permissions  ports.PermissionRepository
	stats        ports.UserStatsRepository
	verification ports.EmailVerificationRepository
	refreshStore ports.RefreshTokenStore
	codes        CodeIssuer
	conf         *config.Config
	metrics      UserMetricsRecorder
}

// UserMetricsRecorder records user metrics / Enregistre les métriques utilisateur
type UserMetricsRecorder interface {
	RecordRegistration()
}

// CodeIssuer sends a sign-up code to a new account / Envoie un code d'inscription
type CodeIssuer interface {
	IssueCode(ctx context.Context, user *domain.User) error
}

// RegisterInput holds the sign-up form / Formulaire d'inscription
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserStats summarizes accounts for moderators / Résumé des comptes pour les modérateurs
type UserStats struct {
	Total    int                     `json:"total"`
	Verified int                     `json:"verified"`
	ByRole   map[domain.UserRole]int `json:"by_role"`
}

// NewUserService creates user management service instance / Crée une instance de service de gestion utilisateur
func NewUserService(
	repo ports.UserRepository,
	refreshStore ports.RefreshTokenStore,
	codes CodeIssuer,
	conf *config.Config,
	metrics UserMetricsRecorder,
) *UserService {
	return &UserService{
		reader:       repo,
		writer:       repo,
		roleRepo:     repo,
		permissions:  repo,
		stats:        repo,
		verification: repo,
		refreshStore: refreshStore,
		codes:        codes,
		conf:         conf,
		metrics:      metrics,
	}
}

// Register creates an unverified account and sends its code.
// A duplicate email returns (nil, nil) so callers answer the same way / Un email existant retourne (nil, nil)
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user, err := s.newAccount(in, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	createdUser, err := s.writer.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDup) {
			slog.Info("registration attempt for existing email", "email", user.Email)
			return nil, nil
		}
		slog.Error("failed to create user", "err", err)
		return nil, apperr.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}

	if err := s.codes.IssueCode(ctx, createdUser); err != nil {
		// The account exists; the user can ask for a new code
		slog.Error("failed to issue sign-up code", "user_id", createdUser.ID, "err", err)
	}

	return createdUser, nil
}

// Provision creates an already verified account with a role, for operators.
// Crée un compte déjà vérifié avec un rôle, pour les opérateurs.
func (s *UserService) Provision(ctx context.Context, in RegisterInput, role domain.UserRole) (*domain.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	user, err := s.newAccount(in, role)
	if err != nil {
		return nil, err
	}

	created, err := s.writer.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDup) {
			return nil, apperr.Conflict("email_taken", "an account with this email already exists")
		}
		return nil, apperr.Internal(err)
	}
	// The very first account is promoted by the store; the requested role wins
	if err := s.roleRepo.UpdateRole(ctx, created.ID, string(role)); err != nil {
		return nil, apperr.FromRepository(err, "user", apperr.OpWrite)
	}
	if err := s.verification.MarkEmailVerified(ctx, created.ID); err != nil {
		return nil, apperr.FromRepository(err, "user", apperr.OpWrite)
	}

	created.Role = role
	created.EmailVerified = true
	slog.Info("account provisioned", "user_id", created.ID, "role", role)
	return created, nil
}

// newAccount validates the form and hashes the password / Valide le formulaire et hache le mot de passe
func (s *UserService) newAccount(in RegisterInput, role domain.UserRole) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	if !isStrongPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	verrs := domain.ValidationErrors{}
	verrs.Require("first_name", in.FirstName)
	verrs.Require("last_name", in.LastName)
	if len(verrs) > 0 {
		return nil, apperr.Validation(verrs)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.conf.Security.BcryptCost)
	if err != nil {
		slog.Error("failed to hash password", "err", err)
		return nil, apperr.Internal(err)
	}

	return &domain.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		Provider:  domain.ProviderLocal,
	}, nil
}

// GetUser retrieves a user by their ID / Récupère un utilisateur par son ID
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.reader.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.FromRepository(err, "user", apperr.OpRead)
	}
	return user, nil
}

// ListUsers retrieves paginated users / Récupère les utilisateurs paginés
func (s *UserService) ListUsers(ctx context.Context, page domain.Page) ([]*domain.User, domain.PageMeta, error) {
	page = page.Normalize(s.conf.Pagination.DefaultPerPage, s.conf.Pagination.MaxPerPage)

	users, totalCount, err := s.reader.List(ctx, page.Offset(), page.PerPage)
	if err != nil {
		slog.Error("failed to list users", "err", err, "page", page.Number, "per_page", page.PerPage)
		return nil, domain.PageMeta{}, apperr.Internal(err)
	}
	return users, domain.NewPageMeta(page, totalCount), nil
}

// DeleteUser permanently removes a user / Supprime définitivement un utilisateur
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return apperr.BadRequest("self_delete", "you cannot delete your own account")
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	if err := s.refreshStore.RevokeAllForUser(ctx, userID); err != nil {
		slog.Error("failed to revoke tokens during user deletion", "user_id", userID, "err", err)
		// Continue with deletion even if token revocation fails
	}

	if err := s.writer.Delete(ctx, userID); err != nil {
		slog.Error("failed to delete user", "user_id", userID, "err", err)
		return apperr.FromRepository(err, "user", apperr.OpDelete)
	}

	return nil
}

// UpdateUserRole changes a user's role and ends their sessions / Change le rôle et ferme les sessions
func (s *UserService) UpdateUserRole(ctx context.Context, userID int64, newRole domain.UserRole) error {
	if !newRole.IsValid() {
		return ErrInvalidRole
	}

	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}

	if err := s.roleRepo.UpdateRole(ctx, userID, string(newRole)); err != nil {
		slog.Error("failed to update user role", "user_id", userID, "new_role", newRole, "err", err)
		return apperr.FromRepository(err, "user", apperr.OpWrite)
	}

	// Access tokens carry the role, so older sessions must go
	if err := s.refreshStore.RevokeAllForUser(ctx, userID); err != nil {
		slog.Error("failed to revoke tokens after role change", "user_id", userID, "err", err)
	}

	return nil
}

// HasPermission checks a granular permission / Vérifie une permission granulaire
func (s *UserService) HasPermission(ctx context.Context, userID int64, permission domain.Permission) (bool, error) {
	return s.permissions.UserHasPermission(ctx, userID, permission)
}

// Stats counts accounts by role and verification / Compte les comptes par rôle et vérification
func (s *UserService) Stats(ctx context.Context) (*UserStats, error) {
	byRole, err := s.stats.CountByRole(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	verified, err := s.stats.CountVerified(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	total := 0
	for _, n := range byRole {
		total += n
	}
	return &UserStats{Total: total, Verified: verified, ByRole: byRole}, nil
}
