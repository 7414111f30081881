package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
)

// MockRefreshTokenStore is a mock implementation of ports.RefreshTokenStore for testing.
// Tokens are keyed by their clear value.
type MockRefreshTokenStore struct {
	mu sync.Mutex

	// Mock data storage
	Tokens map[string]*domain.RefreshToken

	// Mock behavior flags
	SaveError         error
	GetError          error
	RevokeError       error
	RevokeAllError    error
	PurgeExpiredError error

	// Call tracking
	SaveCalls          int
	GetCalls           int
	RevokeCalls        int
	RevokeSessionCalls int
	RevokeAllCalls     int
	PurgeCalls         int
}

// NewMockRefreshTokenStore creates a new mock refresh token store
func NewMockRefreshTokenStore() *MockRefreshTokenStore {
	return &MockRefreshTokenStore{
		Tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *MockRefreshTokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}

	stored := *token
	m.Tokens[token.Token] = &stored
	return nil
}

func (m *MockRefreshTokenStore) Get(ctx context.Context, tokenString string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetError != nil {
		return nil, m.GetError
	}

	token, exists := m.Tokens[tokenString]
	if !exists {
		return nil, repository.ErrNoRecord
	}
	found := *token
	return &found, nil
}

func (m *MockRefreshTokenStore) Revoke(ctx context.Context, tokenString string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeCalls++
	if m.RevokeError != nil {
		return m.RevokeError
	}

	if token, exists := m.Tokens[tokenString]; exists {
		token.IsRevoked = true
	}
	return nil
}

func (m *MockRefreshTokenStore) RevokeSession(ctx context.Context, userID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeSessionCalls++
	if m.RevokeError != nil {
		return m.RevokeError
	}

	for _, token := range m.Tokens {
		if token.UserID == userID && token.SessionID == sessionID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (m *MockRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeAllCalls++
	if m.RevokeAllError != nil {
		return m.RevokeAllError
	}

	for _, token := range m.Tokens {
		if token.UserID == userID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (m *MockRefreshTokenStore) LatestActive(ctx context.Context, userID int64, sessionID string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}

	var latest *domain.RefreshToken
	for _, token := range m.Tokens {
		if token.UserID != userID || token.SessionID != sessionID || token.IsRevoked {
			continue
		}
		if latest == nil || token.IssueAt.After(latest.IssueAt) {
			latest = token
		}
	}
	if latest == nil {
		return nil, repository.ErrNoRecord
	}
	found := *latest
	return &found, nil
}

func (m *MockRefreshTokenStore) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PurgeCalls++
	if m.PurgeExpiredError != nil {
		return 0, m.PurgeExpiredError
	}

	var purged int64
	for key, token := range m.Tokens {
		if token.ExpiresAt.Before(before) {
			delete(m.Tokens, key)
			purged++
		}
	}
	return purged, nil
}

func (m *MockRefreshTokenStore) WithTx(tx *sql.Tx) ports.RefreshTokenStore {
	// For testing, return the same mock
	return m
}

var _ ports.RefreshTokenStore = (*MockRefreshTokenStore)(nil)
