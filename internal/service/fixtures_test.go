package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/mocks"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
	"github.com/orientamada/orientamada/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Orienta@2024"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			BaseURL:     "http://localhost:8080",
			FrontendURL: "http://localhost:3000",
		},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-key-with-at-least-32-bytes",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
			SingleSession:        true,
		},
		Security: config.SecurityConfig{
			MaxFailedAttempts: 3,
			LockoutDuration:   15 * time.Minute,
			BcryptCost:        bcrypt.MinCost,
		},
		OTP: config.OTPConfig{
			TTL:               10 * time.Minute,
			MaxAttempts:       5,
			ResendCooldown:    30 * time.Second,
			ResendMaxAttempts: 5,
			ResendWindow:      time.Hour,
		},
		Cache:      config.CacheConfig{Enabled: true, Size: 64, TTL: time.Minute},
		Pagination: config.PaginationConfig{DefaultPerPage: 20, MaxPerPage: 100},
		Chatbot:    config.ChatbotConfig{MaxMessageLength: 500},
	}
}

// sqliteEnv bundles a migrated database and its repositories
type sqliteEnv struct {
	db      *sql.DB
	adapter *repository.Adapter
	users   ports.UserRepository
}

func newSQLiteEnv(t *testing.T) *sqliteEnv {
	t.Helper()
	database := testutil.NewSQLiteDB(t)
	adapter := repository.NewSQLiteAdapter(database)
	return &sqliteEnv{db: database, adapter: adapter, users: adapter.UserRepository()}
}

// createUser inserts a user with testPassword / Insère un utilisateur avec testPassword
func (e *sqliteEnv) createUser(t *testing.T, email string, verified bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := e.users.Create(context.Background(), &domain.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Rija",
		LastName:  "Rakoto",
		Role:      domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if verified {
		if err := e.users.MarkEmailVerified(context.Background(), user.ID); err != nil {
			t.Fatalf("verify user: %v", err)
		}
		user.EmailVerified = true
	}
	return user
}

func newTestAuthService(t *testing.T, env *sqliteEnv, conf *config.Config) (*AuthService, *mocks.MockMetrics) {
	t.Helper()
	metrics := mocks.NewMockMetrics()
	svc := NewAuthService(env.users, env.adapter.RefreshTokenStore(), conf, env.db, metrics)
	t.Cleanup(svc.Close)
	return svc, metrics
}

func mockedUser(id int64, email string, verified bool) *domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	return &domain.User{
		ID:            id,
		Email:         email,
		Password:      string(hash),
		FirstName:     "Hery",
		LastName:      "Andria",
		Role:          domain.RoleUser,
		EmailVerified: verified,
	}
}
