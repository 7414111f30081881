package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/orientamada/orientamada/internal/app"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/mocks"
	"github.com/orientamada/orientamada/internal/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Orienta@2024"

var otpInBody = regexp.MustCompile(`>(\d{6})<`)

// testServer is a router over a migrated in-memory database
type testServer struct {
	c      *app.Container
	router *Router
	mail   *mocks.MockEmailSender
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			BaseURL:        "http://localhost:8080",
			FrontendURL:    "http://localhost:3000",
			RequestTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Type:           "sqlite",
			DSN:            "file::memory:?_pragma=foreign_keys(1)",
			MigrationsPath: testutil.MigrationsDir(),
			MaxOpenConns:   1,
			MaxIdleConns:   1,
		},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-key-with-at-least-32-bytes",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
			CookiePath:           "/",
		},
		Security: config.SecurityConfig{
			BcryptCost:        bcrypt.MinCost,
			MaxFailedAttempts: 5,
			LockoutDuration:   time.Minute,
		},
		OTP: config.OTPConfig{
			TTL:               10 * time.Minute,
			MaxAttempts:       5,
			ResendCooldown:    30 * time.Second,
			ResendMaxAttempts: 5,
			ResendWindow:      time.Hour,
		},
		Cors:        config.CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Cache:       config.CacheConfig{Enabled: true, Size: 16, TTL: time.Minute},
		Pagination:  config.PaginationConfig{DefaultPerPage: 20, MaxPerPage: 100},
		Maintenance: config.MaintenanceConfig{PurgeInterval: time.Hour},
		Chatbot:     config.ChatbotConfig{MaxMessageLength: 500},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, testConfig())
}

func newTestServerWith(t *testing.T, conf *config.Config) *testServer {
	t.Helper()
	mail := mocks.NewMockEmailSender()
	c, err := app.NewContainer(conf, app.WithEmailSender(mail))
	require.NoError(t, err)
	router := NewRouter(c)
	t.Cleanup(func() {
		router.Close()
		_ = c.Close()
	})
	return &testServer{c: c, router: router, mail: mail}
}

// createUser inserts an account with testPassword and the given role
func (s *testServer) createUser(t *testing.T, email string, role domain.UserRole, verified bool) *domain.User {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user, err := s.c.UserRepo.Create(ctx, &domain.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Voahangy",
		LastName:  "Rasoa",
		Role:      role,
	})
	require.NoError(t, err)
	require.NoError(t, s.c.UserRepo.UpdateRole(ctx, user.ID, string(role)))
	user.Role = role
	if verified {
		require.NoError(t, s.c.UserRepo.MarkEmailVerified(ctx, user.ID))
		user.EmailVerified = true
	}
	return user
}

type request struct {
	method  string
	path    string
	body    any
	cookies []*http.Cookie
	header  http.Header
}

// do serves req; cookie sessions get the matching CSRF header
func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		switch b := req.body.(type) {
		case string:
			body.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(b))
		}
	}

	r := httptest.NewRequest(req.method, req.path, &body)
	r.Header.Set("Content-Type", "application/json")
	for k, v := range req.header {
		r.Header[k] = v
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
		if c.Name == CookieCSRF && r.Header.Get(CSRFHeader) == "" {
			r.Header.Set(CSRFHeader, c.Value)
		}
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, r)
	return rec
}

// login signs in and returns the live session cookies
func (s *testServer) login(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	rec := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   map[string]string{"email": email, "password": testPassword},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return liveCookies(rec)
}

// liveCookies keeps the cookies the response sets, without the expired ones
func liveCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			out = append(out, c)
		}
	}
	return out
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func without(cookies []*http.Cookie, names ...string) []*http.Cookie {
	var out []*http.Cookie
next:
	for _, c := range cookies {
		for _, n := range names {
			if c.Name == n {
				continue next
			}
		}
		out = append(out, c)
	}
	return out
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type envelope[T any] struct {
	Data T               `json:"data"`
	Meta domain.PageMeta `json:"meta"`
}

// waitCode returns the code of the next email sent
func (s *testServer) waitCode(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	email, ok := s.mail.Wait(ctx)
	require.True(t, ok, "no email sent")
	m := otpInBody.FindStringSubmatch(email.Body)
	require.NotNil(t, m, "no code in %s", email.Body)
	return m[1]
}
