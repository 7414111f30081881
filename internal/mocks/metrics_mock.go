package mocks

import "sync"

// MockMetrics is a mock implementation of the service metric recorders for testing
type MockMetrics struct {
	mu sync.Mutex

	AccountLockoutCalls int
	RegistrationCalls   int
	ReviewCreatedCalls  int
	LoginAttempts       map[string]int
	TokenRefreshes      map[string]int
	OTPEvents           map[string]int
	CacheHits           map[string]int
	CacheMisses         map[string]int
	AdminMutations      map[string]int // "entity:action"
	ChatbotIntents      map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		LoginAttempts:  make(map[string]int),
		TokenRefreshes: make(map[string]int),
		OTPEvents:      make(map[string]int),
		CacheHits:      make(map[string]int),
		CacheMisses:    make(map[string]int),
		AdminMutations: make(map[string]int),
		ChatbotIntents: make(map[string]int),
	}
}

func (m *MockMetrics) RecordAccountLockout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccountLockoutCalls++
}

func (m *MockMetrics) RecordRegistration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegistrationCalls++
}

func (m *MockMetrics) RecordLoginAttempt(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoginAttempts[status]++
}

func (m *MockMetrics) RecordTokenRefresh(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TokenRefreshes[status]++
}

func (m *MockMetrics) RecordOTP(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OTPEvents[status]++
}

func (m *MockMetrics) RecordCacheLookup(entity string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.CacheHits[entity]++
		return
	}
	m.CacheMisses[entity]++
}

func (m *MockMetrics) RecordAdminMutation(entity, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdminMutations[entity+":"+action]++
}

func (m *MockMetrics) RecordReviewCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReviewCreatedCalls++
}

func (m *MockMetrics) RecordChatbotIntent(intent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatbotIntents[intent]++
}

// OTPCount reads one OTP counter safely / Lit un compteur OTP
func (m *MockMetrics) OTPCount(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.OTPEvents[status]
}
