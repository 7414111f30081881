package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGoogle serves the token and userinfo endpoints / Sert les points d'accès token et userinfo
type fakeGoogle struct {
	*httptest.Server

	mu           sync.Mutex
	profile      GoogleProfile
	userInfoCode int
	verifiers    []string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{userInfoCode: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		f.mu.Lock()
		f.verifiers = append(f.verifiers, r.PostForm.Get("code_verifier"))
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"google-at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer google-at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.userInfoCode != http.StatusOK {
			w.WriteHeader(f.userInfoCode)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.profile)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGoogle) setProfile(p GoogleProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
}

func googleConfig(server *fakeGoogle) *config.Config {
	conf := testConfig()
	conf.Google = config.GoogleOAuthConfig{
		Enabled:      true,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/auth/google/callback",
		AuthURL:      server.URL + "/auth",
		TokenURL:     server.URL + "/token",
		UserInfoURL:  server.URL + "/userinfo",
	}
	return conf
}

func newGoogleService(env *sqliteEnv, conf *config.Config) *GoogleOAuthService {
	return NewGoogleOAuthService(env.users, env.adapter.RefreshTokenStore(), conf)
}

func TestGoogleOAuth_Disabled(t *testing.T) {
	env := newSQLiteEnv(t)
	svc := newGoogleService(env, testConfig())

	assert.False(t, svc.Enabled())
	_, _, _, err := svc.AuthCodeURL()
	assert.ErrorIs(t, err, ErrOAuthDisabled)
	_, err = svc.Exchange(context.Background(), "good-code", "v")
	assert.ErrorIs(t, err, ErrOAuthDisabled)
}

func TestGoogleOAuth_AuthCodeURL(t *testing.T) {
	google := newFakeGoogle(t)
	svc := newGoogleService(newSQLiteEnv(t), googleConfig(google))

	raw, state, verifier, err := svc.AuthCodeURL()
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.NotEmpty(t, verifier)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, verifier, q.Get("code_challenge"))
	assert.Equal(t, "openid email profile", q.Get("scope"))

	_, other, _, err := svc.AuthCodeURL()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}

func TestGoogleOAuth_Exchange(t *testing.T) {
	ctx := context.Background()
	profile := GoogleProfile{
		Subject:       "google-123",
		Email:         "Fara@Gmail.com",
		EmailVerified: true,
		GivenName:     "Fara",
		FamilyName:    "Rabe",
		Picture:       "https://lh3.googleusercontent.com/a/fara",
	}

	t.Run("creates a verified account", func(t *testing.T) {
		env := newSQLiteEnv(t)
		env.createUser(t, "admin@univ.mg", true)
		google := newFakeGoogle(t)
		google.setProfile(profile)
		svc := newGoogleService(env, googleConfig(google))

		user, err := svc.Exchange(ctx, "good-code", "the-verifier")
		require.NoError(t, err)
		assert.Equal(t, "fara@gmail.com", user.Email)
		assert.True(t, user.EmailVerified)
		assert.Equal(t, domain.ProviderGoogle, user.Provider)
		assert.Equal(t, domain.RoleUser, user.Role)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "google-123", *user.GoogleID)
		assert.Empty(t, user.Password)
		assert.Equal(t, []string{"the-verifier"}, google.verifiers)

		again, err := svc.Exchange(ctx, "good-code", "other-verifier")
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
	})

	t.Run("links a verified local account and keeps its password", func(t *testing.T) {
		env := newSQLiteEnv(t)
		local := env.createUser(t, "fara@gmail.com", true)
		google := newFakeGoogle(t)
		google.setProfile(profile)
		svc := newGoogleService(env, googleConfig(google))

		user, err := svc.Exchange(ctx, "good-code", "v")
		require.NoError(t, err)
		assert.Equal(t, local.ID, user.ID)
		require.NotNil(t, user.GoogleID)
		assert.Equal(t, "google-123", *user.GoogleID)
		assert.Equal(t, local.Password, user.Password)
		assert.Equal(t, domain.ProviderLocal, user.Provider)

		auth, _ := newTestAuthService(t, env, testConfig())
		_, err = auth.Login(ctx, "fara@gmail.com", testPassword, ClientBinding{})
		assert.NoError(t, err, "owner keeps password login")
	})

	t.Run("takes over an unverified local account", func(t *testing.T) {
		env := newSQLiteEnv(t)
		squatter := env.createUser(t, "fara@gmail.com", false)
		tokens := env.adapter.RefreshTokenStore()
		require.NoError(t, tokens.Save(ctx, &domain.RefreshToken{
			Token:     "squatter-refresh",
			UserID:    squatter.ID,
			SessionID: "squatter-session",
			IssueAt:   time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}))
		google := newFakeGoogle(t)
		google.setProfile(profile)
		svc := newGoogleService(env, googleConfig(google))

		user, err := svc.Exchange(ctx, "good-code", "v")
		require.NoError(t, err)
		assert.Equal(t, squatter.ID, user.ID)
		assert.True(t, user.EmailVerified)
		assert.Empty(t, user.Password, "password chosen before verification is dropped")
		assert.Equal(t, domain.ProviderGoogle, user.Provider)

		auth, _ := newTestAuthService(t, env, testConfig())
		_, err = auth.Login(ctx, "fara@gmail.com", testPassword, ClientBinding{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		stored, err := tokens.Get(ctx, "squatter-refresh")
		require.NoError(t, err)
		assert.True(t, stored.IsRevoked, "earlier sessions are revoked")
	})

	t.Run("refuses to link an unverified google email", func(t *testing.T) {
		env := newSQLiteEnv(t)
		env.createUser(t, "fara@gmail.com", true)
		google := newFakeGoogle(t)
		unverified := profile
		unverified.EmailVerified = false
		google.setProfile(unverified)
		svc := newGoogleService(env, googleConfig(google))

		_, err := svc.Exchange(ctx, "good-code", "v")
		assert.ErrorIs(t, err, ErrOAuthFailed)
	})

	t.Run("provider failures", func(t *testing.T) {
		env := newSQLiteEnv(t)
		google := newFakeGoogle(t)
		google.setProfile(profile)
		svc := newGoogleService(env, googleConfig(google))

		_, err := svc.Exchange(ctx, "", "v")
		assert.ErrorIs(t, err, ErrOAuthFailed)

		_, err = svc.Exchange(ctx, "bad-code", "v")
		assert.ErrorIs(t, err, ErrOAuthFailed)

		google.mu.Lock()
		google.userInfoCode = http.StatusInternalServerError
		google.mu.Unlock()
		_, err = svc.Exchange(ctx, "good-code", "v")
		assert.ErrorIs(t, err, ErrOAuthFailed)

		google.mu.Lock()
		google.userInfoCode = http.StatusOK
		google.mu.Unlock()
		google.setProfile(GoogleProfile{Email: "nosub@gmail.com"})
		_, err = svc.Exchange(ctx, "good-code", "v")
		assert.ErrorIs(t, err, ErrOAuthFailed)

		n, err := env.users.CountUsers(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
