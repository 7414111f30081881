package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository/db"
)

var _ ports.UserRepository = (*userRepository)(nil)

const userColumns = `id, email, password, first_name, last_name, role, provider, google_id, avatar_url,
	email_verified, failed_login_attempts, locked_until, created_at, updated_at`

// userRepository implements UserRepository / Implémente UserRepository
type userRepository struct {
	c conn
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Password,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.Provider,
		&u.GoogleID,
		&u.AvatarURL,
		&u.EmailVerified,
		&u.FailedLoginAttempts,
		&u.LockedUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// WithTx returns repository with transaction / Retourne le repository avec transaction
func (r *userRepository) WithTx(dbtx ports.DBTX) ports.AccountSecurityRepository {
	return &userRepository{c: conn{db: dbtx, d: r.c.d}}
}

// Create inserts a user; the very first account becomes admin / Le tout premier compte devient admin
func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	var count int
	if err := r.c.scanRow(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`, nil, &count); err != nil {
		return nil, err
	}

	role := user.Role
	if count == 0 {
		role = domain.RoleAdmin
	} else if !role.IsValid() {
		role = domain.RoleUser
	}
	provider := user.Provider
	if provider == "" {
		provider = domain.ProviderLocal
	}

	ts := now()
	query := `INSERT INTO users (email, password, first_name, last_name, role, provider, google_id, avatar_url,
		email_verified, failed_login_attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.c.insert(ctx, query,
		strings.ToLower(user.Email),
		user.Password,
		user.FirstName,
		user.LastName,
		string(role),
		provider,
		user.GoogleID,
		user.AvatarURL,
		user.EmailVerified,
		0,
		ts,
		ts,
	)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id))
	return u, r.c.d.TranslateError(err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, strings.ToLower(email)))
	return u, r.c.d.TranslateError(err)
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	u, err := scanUser(r.c.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ? AND deleted_at IS NULL`, googleID))
	return u, r.c.d.TranslateError(err)
}

// List retrieves paginated users, newest first / Récupère les utilisateurs paginés, plus récents d'abord
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	var total int
	if err := r.c.scanRow(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`, nil, &total); err != nil {
		return nil, 0, err
	}

	rows, err := r.c.query(ctx, `SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, r.c.d.TranslateError(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.c.d.TranslateError(err)
	}

	return users, total, nil
}

func (r *userRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.c.scanRow(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`, nil, &count)
	return count, err
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	return r.c.execAffecting(ctx, `DELETE FROM users WHERE id = ?`, id)
}

// LinkGoogleAccount attaches a Google identity / Rattache une identité Google
// An unverified local account loses its password and pending reset.
// The CASE columns read the old email_verified, so they come first (MySQL assigns left to right).
func (r *userRepository) LinkGoogleAccount(ctx context.Context, userID int64, googleID, avatarURL string) error {
	query := `UPDATE users
		SET password = CASE WHEN email_verified THEN password ELSE '' END,
		    password_reset_token = CASE WHEN email_verified THEN password_reset_token ELSE NULL END,
		    password_reset_expires_at = CASE WHEN email_verified THEN password_reset_expires_at ELSE NULL END,
		    provider = CASE WHEN email_verified THEN provider ELSE ? END,
		    google_id = ?, avatar_url = CASE WHEN avatar_url = '' THEN ? ELSE avatar_url END,
		    email_verified = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`
	return r.c.execAffecting(ctx, query, domain.ProviderGoogle, googleID, avatarURL, true, now(), userID)
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, userID int64) error {
	return r.c.execAffecting(ctx, `UPDATE users SET email_verified = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, true, now(), userID)
}

func (r *userRepository) IncrementFailedAttempts(ctx context.Context, userID int64) error {
	_, err := r.c.exec(ctx, `UPDATE users SET failed_login_attempts = failed_login_attempts + 1 WHERE id = ?`, userID)
	return err
}

func (r *userRepository) ResetFailedAttempts(ctx context.Context, userID int64) error {
	_, err := r.c.exec(ctx, `UPDATE users SET failed_login_attempts = 0, locked_until = NULL WHERE id = ?`, userID)
	return err
}

// LockAccount restarts the failure count so an expired lock grants a full set of attempts
func (r *userRepository) LockAccount(ctx context.Context, userID int64, until time.Time) error {
	_, err := r.c.exec(ctx, `UPDATE users SET locked_until = ?, failed_login_attempts = 0 WHERE id = ?`, until.UTC(), userID)
	return err
}

func (r *userRepository) UpdateRole(ctx context.Context, userID int64, role string) error {
	return r.c.execAffecting(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, role, now(), userID)
}

func (r *userRepository) GetPermissionsForRole(ctx context.Context, role string) ([]domain.Permission, error) {
	rows, err := r.c.query(ctx, `SELECT permission FROM role_permissions WHERE role = ? ORDER BY permission`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []domain.Permission
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, r.c.d.TranslateError(err)
		}
		permissions = append(permissions, domain.Permission(perm))
	}
	return permissions, r.c.d.TranslateError(rows.Err())
}

func (r *userRepository) UserHasPermission(ctx context.Context, userID int64, permission domain.Permission) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM users u
		JOIN role_permissions rp ON u.role = rp.role
		WHERE u.id = ? AND rp.permission = ? AND u.deleted_at IS NULL
	`
	var n int
	if err := r.c.scanRow(ctx, query, []any{userID, permission.String()}, &n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *userRepository) AddPermissionToRole(ctx context.Context, role string, permission domain.Permission) error {
	_, err := r.c.exec(ctx, `INSERT INTO role_permissions (role, permission) VALUES (?, ?)`, role, permission.String())
	return err
}

func (r *userRepository) RemovePermissionFromRole(ctx context.Context, role string, permission domain.Permission) error {
	_, err := r.c.exec(ctx, `DELETE FROM role_permissions WHERE role = ? AND permission = ?`, role, permission.String())
	return err
}

func (r *userRepository) SetPasswordResetToken(ctx context.Context, email string, token string, expiresAt time.Time) error {
	query := `UPDATE users SET password_reset_token = ?, password_reset_expires_at = ?
		WHERE email = ? AND deleted_at IS NULL`
	return r.c.execAffecting(ctx, query, token, expiresAt.UTC(), strings.ToLower(email))
}

func (r *userRepository) GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE password_reset_token = ? AND password_reset_expires_at > ? AND deleted_at IS NULL`
	u, err := scanUser(r.c.queryRow(ctx, query, token, now()))
	return u, r.c.d.TranslateError(err)
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int64, hashedPassword string) error {
	return r.c.execAffecting(ctx, `UPDATE users SET password = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, hashedPassword, now(), userID)
}

func (r *userRepository) ClearPasswordResetToken(ctx context.Context, userID int64) error {
	_, err := r.c.exec(ctx, `UPDATE users SET password_reset_token = NULL, password_reset_expires_at = NULL,
		updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now(), userID)
	return err
}

// CountByRole groups live accounts by role / Regroupe les comptes actifs par rôle
func (r *userRepository) CountByRole(ctx context.Context) (map[domain.UserRole]int, error) {
	rows, err := r.c.query(ctx, `SELECT role, COUNT(*) FROM users WHERE deleted_at IS NULL GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.UserRole]int{domain.RoleUser: 0, domain.RoleModerator: 0, domain.RoleAdmin: 0}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, r.c.d.TranslateError(err)
		}
		counts[domain.UserRole(role)] = n
	}
	return counts, r.c.d.TranslateError(rows.Err())
}

func (r *userRepository) CountVerified(ctx context.Context) (int, error) {
	var n int
	err := r.c.scanRow(ctx, `SELECT COUNT(*) FROM users WHERE email_verified = ? AND deleted_at IS NULL`, []any{true}, &n)
	return n, err
}

// isNoRecord reports a translated missing-row error / Indique une ligne absente
func isNoRecord(err error) bool {
	return errors.Is(err, db.ErrNoRecord)
}
