package mocks

import (
	"context"
	"sync"
)

// SentEmail is one message captured by MockEmailSender
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a mock implementation of ports.EmailSender for testing.
// Sends may happen on background goroutines, so reads go through Sent or Wait.
type MockEmailSender struct {
	mu sync.Mutex

	// Mock behavior
	SendFunc func(ctx context.Context, to, subject, body string) error

	sent   []SentEmail
	notify chan SentEmail
}

func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{notify: make(chan SentEmail, 64)}
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	email := SentEmail{To: to, Subject: subject, Body: body}
	m.sent = append(m.sent, email)
	fn := m.SendFunc
	m.mu.Unlock()

	select {
	case m.notify <- email:
	default:
	}

	if fn != nil {
		return fn(ctx, to, subject, body)
	}
	return nil // Default: success
}

// Sent returns a copy of every captured email / Retourne une copie des emails capturés
func (m *MockEmailSender) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// Wait blocks until the next email is sent or ctx ends / Attend le prochain email
func (m *MockEmailSender) Wait(ctx context.Context) (SentEmail, bool) {
	select {
	case email := <-m.notify:
		return email, true
	case <-ctx.Done():
		return SentEmail{}, false
	}
}
