package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/testutil"
)

func createUser(t *testing.T, repo ports.UserRepository, email string) *domain.User {
	t.Helper()
	u, err := repo.Create(context.Background(), &domain.User{Email: email, Password: "hashed", FirstName: "Hery"})
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return u
}

func TestSQLiteUserRepo_Create(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	// First user should be admin / Premier utilisateur doit être admin
	user := createUser(t, repo, "Test@Example.com")
	if user.ID == 0 {
		t.Error("Expected user ID to be set")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Expected lowercased email, got '%s'", user.Email)
	}
	if user.Role != domain.RoleAdmin {
		t.Errorf("Expected first user to have role 'admin', got '%s'", user.Role)
	}
	if user.Provider != domain.ProviderLocal {
		t.Errorf("Expected provider 'local', got '%s'", user.Provider)
	}

	// Second user keeps the default role / Deuxième utilisateur garde le rôle par défaut
	user2 := createUser(t, repo, "user2@example.com")
	if user2.Role != domain.RoleUser {
		t.Errorf("Expected second user to have role 'user', got '%s'", user2.Role)
	}

	_, err := repo.Create(ctx, &domain.User{Email: "TEST@example.com", Password: "x"})
	if !errors.Is(err, ErrDup) {
		t.Errorf("Expected ErrDup for duplicate email, got %v", err)
	}
}

func TestSQLiteUserRepo_GetByIDAndEmail(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	created := createUser(t, repo, "test@example.com")

	user, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("Failed to get user by ID: %v", err)
	}
	if user.FirstName != "Hery" {
		t.Errorf("Expected first name 'Hery', got '%s'", user.FirstName)
	}

	user, err = repo.GetByEmail(ctx, "TEST@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("Failed to get user by email: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("Expected ID %d, got %d", created.ID, user.ID)
	}

	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord, got %v", err)
	}
}

func TestSQLiteUserRepo_GoogleAccount(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	user := createUser(t, repo, "rakoto@example.com")

	if err := repo.LinkGoogleAccount(ctx, user.ID, "google-123", "https://img/avatar.png"); err != nil {
		t.Fatalf("Failed to link google account: %v", err)
	}

	linked, err := repo.GetByGoogleID(ctx, "google-123")
	if err != nil {
		t.Fatalf("Failed to get user by google id: %v", err)
	}
	if linked.ID != user.ID {
		t.Errorf("Expected ID %d, got %d", user.ID, linked.ID)
	}
	if !linked.EmailVerified {
		t.Error("Expected linking to verify the email")
	}
	// The account was unverified, so its password goes / Compte non vérifié : le mot de passe disparaît
	if linked.Password != "" || linked.Provider != domain.ProviderGoogle {
		t.Errorf("Expected unverified account to lose its password, got password=%q provider=%q", linked.Password, linked.Provider)
	}
	if linked.AvatarURL != "https://img/avatar.png" {
		t.Errorf("Expected avatar to be set, got '%s'", linked.AvatarURL)
	}

	// An existing avatar is kept / Un avatar existant est conservé
	if err := repo.LinkGoogleAccount(ctx, user.ID, "google-123", "https://img/other.png"); err != nil {
		t.Fatalf("Failed to relink: %v", err)
	}
	linked, _ = repo.GetByID(ctx, user.ID)
	if linked.AvatarURL != "https://img/avatar.png" {
		t.Errorf("Expected avatar unchanged, got '%s'", linked.AvatarURL)
	}

	// A verified account keeps its password / Un compte vérifié garde son mot de passe
	owner := createUser(t, repo, "owner@example.com")
	if err := repo.MarkEmailVerified(ctx, owner.ID); err != nil {
		t.Fatalf("Failed to verify owner: %v", err)
	}
	if err := repo.LinkGoogleAccount(ctx, owner.ID, "google-456", ""); err != nil {
		t.Fatalf("Failed to link verified account: %v", err)
	}
	linked, _ = repo.GetByID(ctx, owner.ID)
	if linked.Password != "hashed" || linked.Provider != domain.ProviderLocal {
		t.Errorf("Expected verified account unchanged, got password=%q provider=%q", linked.Password, linked.Provider)
	}

	if err := repo.LinkGoogleAccount(ctx, 999, "google-999", ""); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord for unknown user, got %v", err)
	}
}

func TestSQLiteUserRepo_List(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	createUser(t, repo, "user1@example.com")
	createUser(t, repo, "user2@example.com")
	last := createUser(t, repo, "user3@example.com")

	users, total, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Failed to list users: %v", err)
	}
	if len(users) != 3 || total != 3 {
		t.Fatalf("Expected 3 users, got %d (total %d)", len(users), total)
	}
	if users[0].ID != last.ID {
		t.Errorf("Expected newest user first, got ID %d", users[0].ID)
	}

	users, total, err = repo.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Failed to list users with offset: %v", err)
	}
	if len(users) != 2 || total != 3 {
		t.Errorf("Expected 2 users of 3, got %d of %d", len(users), total)
	}
}

func TestSQLiteUserRepo_Delete(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	user := createUser(t, repo, "test@example.com")

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Failed to delete user: %v", err)
	}
	if _, err := repo.GetByID(ctx, user.ID); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord after delete, got %v", err)
	}
	if err := repo.Delete(ctx, 999); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord for unknown user, got %v", err)
	}
}

func TestSQLiteUserRepo_UpdateRole(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	createUser(t, repo, "admin@example.com")
	user := createUser(t, repo, "test@example.com")

	if err := repo.UpdateRole(ctx, user.ID, string(domain.RoleModerator)); err != nil {
		t.Fatalf("Failed to update role: %v", err)
	}
	updated, _ := repo.GetByID(ctx, user.ID)
	if updated.Role != domain.RoleModerator {
		t.Errorf("Expected role 'moderator', got '%s'", updated.Role)
	}

	if err := repo.UpdateRole(ctx, 999, "admin"); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord for unknown user, got %v", err)
	}
}

func TestSQLiteUserRepo_FailedAttemptsAndLock(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	user := createUser(t, repo, "test@example.com")

	repo.IncrementFailedAttempts(ctx, user.ID)
	repo.IncrementFailedAttempts(ctx, user.ID)
	updated, _ := repo.GetByID(ctx, user.ID)
	if updated.FailedLoginAttempts != 2 {
		t.Errorf("Expected 2 failed attempts, got %d", updated.FailedLoginAttempts)
	}

	if err := repo.LockAccount(ctx, user.ID, time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("Failed to lock account: %v", err)
	}
	updated, _ = repo.GetByID(ctx, user.ID)
	if !updated.IsLocked() {
		t.Error("Expected account to be locked")
	}
	if updated.FailedLoginAttempts != 0 {
		t.Errorf("Expected the lock to restart the count, got %d failed attempts", updated.FailedLoginAttempts)
	}

	if err := repo.ResetFailedAttempts(ctx, user.ID); err != nil {
		t.Fatalf("Failed to reset failed attempts: %v", err)
	}
	updated, _ = repo.GetByID(ctx, user.ID)
	if updated.FailedLoginAttempts != 0 || updated.IsLocked() {
		t.Errorf("Expected reset counters, got %d attempts, locked=%v", updated.FailedLoginAttempts, updated.IsLocked())
	}
}

func TestSQLiteUserRepo_PasswordReset(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()
	user := createUser(t, repo, "test@example.com")

	if err := repo.SetPasswordResetToken(ctx, "test@example.com", "reset-token-123", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Failed to set password reset token: %v", err)
	}
	found, err := repo.GetByPasswordResetToken(ctx, "reset-token-123")
	if err != nil {
		t.Fatalf("Failed to get user by reset token: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("Expected user ID %d, got %d", user.ID, found.ID)
	}

	if err := repo.UpdatePassword(ctx, user.ID, "newhash"); err != nil {
		t.Fatalf("Failed to update password: %v", err)
	}
	if err := repo.ClearPasswordResetToken(ctx, user.ID); err != nil {
		t.Fatalf("Failed to clear reset token: %v", err)
	}
	if _, err := repo.GetByPasswordResetToken(ctx, "reset-token-123"); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord for cleared token, got %v", err)
	}

	updated, _ := repo.GetByID(ctx, user.ID)
	if updated.Password != "newhash" {
		t.Errorf("Expected password 'newhash', got '%s'", updated.Password)
	}

	// Expired tokens are ignored / Les tokens expirés sont ignorés
	repo.SetPasswordResetToken(ctx, "test@example.com", "old-token", time.Now().Add(-time.Minute))
	if _, err := repo.GetByPasswordResetToken(ctx, "old-token"); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord for expired token, got %v", err)
	}

	if err := repo.SetPasswordResetToken(ctx, "nobody@example.com", "t", time.Now()); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord for unknown email, got %v", err)
	}
}

func TestSQLiteUserRepo_Counts(t *testing.T) {
	repo := NewSQLiteUser(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	count, err := repo.CountUsers(ctx)
	if err != nil || count != 0 {
		t.Fatalf("Expected 0 users, got %d (%v)", count, err)
	}

	createUser(t, repo, "admin@example.com")
	u := createUser(t, repo, "user@example.com")
	createUser(t, repo, "other@example.com")
	repo.MarkEmailVerified(ctx, u.ID)

	count, _ = repo.CountUsers(ctx)
	if count != 3 {
		t.Errorf("Expected 3 users, got %d", count)
	}

	byRole, err := repo.CountByRole(ctx)
	if err != nil {
		t.Fatalf("Failed to count by role: %v", err)
	}
	if byRole[domain.RoleAdmin] != 1 || byRole[domain.RoleUser] != 2 || byRole[domain.RoleModerator] != 0 {
		t.Errorf("Unexpected role counts: %v", byRole)
	}

	verified, err := repo.CountVerified(ctx)
	if err != nil {
		t.Fatalf("Failed to count verified: %v", err)
	}
	if verified != 1 {
		t.Errorf("Expected 1 verified user, got %d", verified)
	}
}

func TestSQLiteUserRepo_Permissions(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewSQLiteUser(db)
	ctx := context.Background()

	perms, err := repo.GetPermissionsForRole(ctx, "moderator")
	if err != nil {
		t.Fatalf("Failed to get permissions for moderator: %v", err)
	}
	if len(perms) != 5 {
		t.Errorf("Expected 5 seeded moderator permissions, got %d", len(perms))
	}

	admin := createUser(t, repo, "admin@example.com")
	user := createUser(t, repo, "user@example.com")

	has, err := repo.UserHasPermission(ctx, admin.ID, domain.PermissionReferenceDelete)
	if err != nil || !has {
		t.Errorf("Expected admin to have reference:delete (%v)", err)
	}
	has, _ = repo.UserHasPermission(ctx, user.ID, domain.PermissionReferenceWrite)
	if has {
		t.Error("Expected user to NOT have reference:write")
	}

	if err := repo.AddPermissionToRole(ctx, "user", domain.PermissionStatsRead); err != nil {
		t.Fatalf("Failed to add permission to role: %v", err)
	}
	if err := repo.AddPermissionToRole(ctx, "user", domain.PermissionStatsRead); !errors.Is(err, ErrDup) {
		t.Errorf("Expected ErrDup for duplicate grant, got %v", err)
	}
	has, _ = repo.UserHasPermission(ctx, user.ID, domain.PermissionStatsRead)
	if !has {
		t.Error("Expected user to have stats:read after grant")
	}

	if err := repo.RemovePermissionFromRole(ctx, "user", domain.PermissionStatsRead); err != nil {
		t.Fatalf("Failed to remove permission from role: %v", err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM role_permissions WHERE role = 'user'").Scan(&count)
	if count != 0 {
		t.Errorf("Expected 0 user permissions, got %d", count)
	}
}

func TestSQLiteUserRepo_WithTx(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewSQLiteUser(db)
	ctx := context.Background()
	user := createUser(t, repo, "tx@example.com")

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if err := repo.WithTx(tx).IncrementFailedAttempts(ctx, user.ID); err != nil {
		t.Fatalf("Failed to increment in transaction: %v", err)
	}
	tx.Rollback()

	updated, _ := repo.GetByID(ctx, user.ID)
	if updated.FailedLoginAttempts != 0 {
		t.Errorf("Expected rollback to discard the increment, got %d", updated.FailedLoginAttempts)
	}
}
