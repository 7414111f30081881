package mocks

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
)

// passwordResetData stores password reset token information separate from User
type passwordResetData struct {
	Token     string
	ExpiresAt time.Time
}

// MockUserRepository is a mock implementation of ports.UserRepository for testing.
// Missing rows return repository.ErrNoRecord and duplicates repository.ErrDup.
type MockUserRepository struct {
	mu     sync.Mutex
	nextID int64

	// Mock data storage
	Users       map[int64]*domain.User
	ResetTokens map[string]int64             // token -> userID mapping
	ResetData   map[int64]*passwordResetData // userID -> reset data
	Permissions map[domain.UserRole][]domain.Permission

	// Mock behavior flags
	CreateError          error
	GetByIDError         error
	GetByEmailError      error
	DeleteError          error
	UpdateRoleError      error
	LockAccountError     error
	IncrementFailedError error
	ResetFailedError     error
	UpdatePasswordError  error
	ClearResetTokenError error
	ListError            error

	// Call tracking
	CreateCalls          int
	GetByIDCalls         int
	GetByEmailCalls      int
	DeleteCalls          int
	UpdateRoleCalls      int
	LockAccountCalls     int
	IncrementFailedCalls int
	ResetFailedCalls     int
}

// NewMockUserRepository creates a new mock user repository
func NewMockUserRepository() *MockUserRepository {
	perms := make(map[domain.UserRole][]domain.Permission)
	for _, role := range []domain.UserRole{domain.RoleUser, domain.RoleModerator, domain.RoleAdmin} {
		perms[role] = domain.DefaultPermissionsForRole(role)
	}
	return &MockUserRepository{
		Users:       make(map[int64]*domain.User),
		ResetTokens: make(map[string]int64),
		ResetData:   make(map[int64]*passwordResetData),
		Permissions: perms,
	}
}

// Add stores a user as-is and returns its id / Ajoute un utilisateur tel quel
func (m *MockUserRepository) Add(user *domain.User) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	} else if user.ID > m.nextID {
		m.nextID = user.ID
	}
	m.Users[user.ID] = user
	return user.ID
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	email := strings.ToLower(user.Email)
	for _, existing := range m.Users {
		if existing.Email == email {
			return nil, repository.ErrDup
		}
	}

	created := *user
	created.Email = email
	if created.Role == "" {
		created.Role = domain.RoleUser
	}
	if len(m.Users) == 0 {
		created.Role = domain.RoleAdmin
	}
	if created.Provider == "" {
		created.Provider = domain.ProviderLocal
	}
	m.nextID++
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	m.Users[created.ID] = &created
	return &created, nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetByIDCalls++
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}

	user, exists := m.Users[id]
	if !exists {
		return nil, repository.ErrNoRecord
	}
	return user, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetByEmailCalls++
	if m.GetByEmailError != nil {
		return nil, m.GetByEmailError
	}
	return m.byEmail(email)
}

func (m *MockUserRepository) byEmail(email string) (*domain.User, error) {
	for _, user := range m.Users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, repository.ErrNoRecord
}

func (m *MockUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if user.GoogleID != nil && *user.GoogleID == googleID {
			return user, nil
		}
	}
	return nil, repository.ErrNoRecord
}

func (m *MockUserRepository) LinkGoogleAccount(ctx context.Context, userID int64, googleID, avatarURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	if !user.EmailVerified {
		user.Password = ""
		delete(m.ResetData, userID)
		user.Provider = domain.ProviderGoogle
	}
	user.GoogleID = &googleID
	if user.AvatarURL == "" {
		user.AvatarURL = avatarURL
	}
	user.EmailVerified = true
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	user.EmailVerified = true
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, exists := m.Users[id]; !exists {
		return repository.ErrNoRecord
	}
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, userID int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateRoleCalls++
	if m.UpdateRoleError != nil {
		return m.UpdateRoleError
	}

	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	user.Role = domain.UserRole(role)
	return nil
}

func (m *MockUserRepository) LockAccount(ctx context.Context, userID int64, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockAccountCalls++
	if m.LockAccountError != nil {
		return m.LockAccountError
	}

	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	user.LockedUntil = &until
	user.FailedLoginAttempts = 0
	return nil
}

func (m *MockUserRepository) IncrementFailedAttempts(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncrementFailedCalls++
	if m.IncrementFailedError != nil {
		return m.IncrementFailedError
	}

	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	user.FailedLoginAttempts++
	return nil
}

func (m *MockUserRepository) ResetFailedAttempts(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetFailedCalls++
	if m.ResetFailedError != nil {
		return m.ResetFailedError
	}

	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

// List pages users by ascending id / Pagine les utilisateurs par id croissant
func (m *MockUserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, 0, m.ListError
	}

	ids := make([]int64, 0, len(m.Users))
	for id := range m.Users {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	totalCount := len(ids)
	if offset >= totalCount {
		return []*domain.User{}, totalCount, nil
	}

	end := min(offset+limit, totalCount)
	users := make([]*domain.User, 0, end-offset)
	for _, id := range ids[offset:end] {
		users = append(users, m.Users[id])
	}
	return users, totalCount, nil
}

func (m *MockUserRepository) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Users), nil
}

func (m *MockUserRepository) CountByRole(ctx context.Context) (map[domain.UserRole]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.UserRole]int)
	for _, user := range m.Users {
		counts[user.Role]++
	}
	return counts, nil
}

func (m *MockUserRepository) CountVerified(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, user := range m.Users {
		if user.EmailVerified {
			n++
		}
	}
	return n, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID int64, hashedPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdatePasswordError != nil {
		return m.UpdatePasswordError
	}

	user, exists := m.Users[userID]
	if !exists {
		return repository.ErrNoRecord
	}
	user.Password = hashedPassword
	return nil
}

func (m *MockUserRepository) SetPasswordResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, err := m.byEmail(email)
	if err != nil {
		return err
	}
	m.ResetData[user.ID] = &passwordResetData{
		Token:     token,
		ExpiresAt: expiresAt,
	}
	m.ResetTokens[token] = user.ID
	return nil
}

func (m *MockUserRepository) GetByPasswordResetToken(ctx context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, exists := m.ResetTokens[token]
	if !exists {
		return nil, repository.ErrNoRecord
	}

	resetData, exists := m.ResetData[userID]
	if !exists || time.Now().After(resetData.ExpiresAt) {
		return nil, repository.ErrNoRecord
	}

	user, exists := m.Users[userID]
	if !exists {
		return nil, repository.ErrNoRecord
	}
	return user, nil
}

func (m *MockUserRepository) ClearPasswordResetToken(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClearResetTokenError != nil {
		return m.ClearResetTokenError
	}

	if _, exists := m.Users[userID]; !exists {
		return repository.ErrNoRecord
	}

	if resetData, exists := m.ResetData[userID]; exists {
		delete(m.ResetTokens, resetData.Token)
		delete(m.ResetData, userID)
	}
	return nil
}

// ResetTokenFor returns the pending reset token of a user / Retourne le token de réinitialisation en attente
func (m *MockUserRepository) ResetTokenFor(userID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.ResetData[userID]
	if !ok {
		return "", false
	}
	return data.Token, true
}

func (m *MockUserRepository) GetPermissionsForRole(ctx context.Context, role string) ([]domain.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Permissions[domain.UserRole(role)]), nil
}

func (m *MockUserRepository) AddPermissionToRole(ctx context.Context, role string, permission domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := domain.UserRole(role)
	if !slices.Contains(m.Permissions[r], permission) {
		m.Permissions[r] = append(m.Permissions[r], permission)
	}
	return nil
}

func (m *MockUserRepository) RemovePermissionFromRole(ctx context.Context, role string, permission domain.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := domain.UserRole(role)
	m.Permissions[r] = slices.DeleteFunc(m.Permissions[r], func(p domain.Permission) bool { return p == permission })
	return nil
}

func (m *MockUserRepository) UserHasPermission(ctx context.Context, userID int64, permission domain.Permission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.Users[userID]
	if !exists {
		return false, nil
	}
	return slices.Contains(m.Permissions[user.Role], permission), nil
}

// WithTx returns the same mock instance for transaction support in tests.
func (m *MockUserRepository) WithTx(dbtx ports.DBTX) ports.AccountSecurityRepository {
	return m
}

var _ ports.UserRepository = (*MockUserRepository)(nil)
