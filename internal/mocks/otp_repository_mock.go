package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
)

// MockOTPRepository is an in-memory ports.OTPRepository for testing
type MockOTPRepository struct {
	mu     sync.Mutex
	nextID int64

	Codes []*domain.EmailOTP

	// Mock behavior flags
	CreateError error

	// Call tracking
	CreateCalls int
}

func NewMockOTPRepository() *MockOTPRepository {
	return &MockOTPRepository{}
}

func (m *MockOTPRepository) Create(ctx context.Context, otp *domain.EmailOTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}

	now := time.Now()
	for _, code := range m.Codes {
		if code.UserID == otp.UserID && code.ConsumedAt == nil {
			consumed := now
			code.ConsumedAt = &consumed
		}
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = now
	}
	m.nextID++
	otp.ID = m.nextID
	stored := *otp
	m.Codes = append(m.Codes, &stored)
	return nil
}

func (m *MockOTPRepository) GetActive(ctx context.Context, userID int64) (*domain.EmailOTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Codes) - 1; i >= 0; i-- {
		code := m.Codes[i]
		if code.UserID == userID && code.ConsumedAt == nil {
			found := *code
			return &found, nil
		}
	}
	return nil, repository.ErrNoRecord
}

func (m *MockOTPRepository) find(id int64) *domain.EmailOTP {
	for _, code := range m.Codes {
		if code.ID == id {
			return code
		}
	}
	return nil
}

func (m *MockOTPRepository) ClaimAttempt(ctx context.Context, id int64, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := m.find(id)
	if code == nil || code.ConsumedAt != nil || code.Attempts >= maxAttempts {
		return repository.ErrNoRecord
	}
	code.Attempts++
	return nil
}

func (m *MockOTPRepository) Consume(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	code := m.find(id)
	if code == nil || code.ConsumedAt != nil {
		return repository.ErrNoRecord
	}
	code.ConsumedAt = &at
	return nil
}

func (m *MockOTPRepository) LastCreatedAt(ctx context.Context, userID int64) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	for _, code := range m.Codes {
		if code.UserID == userID && code.CreatedAt.After(last) {
			last = code.CreatedAt
		}
	}
	return last, nil
}

func (m *MockOTPRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Codes[:0]
	var purged int64
	for _, code := range m.Codes {
		if code.ExpiresAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, code)
	}
	m.Codes = kept
	return purged, nil
}

// Latest returns a copy of the newest code of a user / Retourne le code le plus récent
func (m *MockOTPRepository) Latest(userID int64) (domain.EmailOTP, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Codes) - 1; i >= 0; i-- {
		if m.Codes[i].UserID == userID {
			return *m.Codes[i], true
		}
	}
	return domain.EmailOTP{}, false
}

var _ ports.OTPRepository = (*MockOTPRepository)(nil)
