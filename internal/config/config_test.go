package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Port: "8080"},
		Auth: AuthConfig{
			JWTSecret:            "development-secret-key",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
		},
		OTP: OTPConfig{
			TTL:            10 * time.Minute,
			MaxAttempts:    5,
			ResendCooldown: 30 * time.Second,
		},
		RateLimiter: RateLimiterConfig{Enabled: true, RPS: 10, Burst: 20},
	}
}

func productionConfig() *Config {
	cfg := validConfig()
	cfg.Environment = "production"
	cfg.Auth.JWTSecret = "very-long-production-secret-key-32-chars-minimum"
	cfg.Auth.CookieSecure = true
	cfg.Database.DSN = "postgres://orienta@db/orientamada"
	cfg.Database.Type = "postgres"
	return cfg
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"Production environment", "production", true},
		{"Development environment", "development", false},
		{"Empty environment", "", false},
		{"Other environment", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.env}
			if got := cfg.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
			if got := cfg.IsProd(); got != tt.want {
				t.Errorf("IsProd() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Environment: "development"}
	if !cfg.IsDevelopment() || !cfg.IsDev() {
		t.Error("development environment not detected")
	}

	cfg.Environment = "production"
	if cfg.IsDev() {
		t.Error("IsDev() should return false for production environment")
	}
}

func TestConfig_MigrationsDir(t *testing.T) {
	tests := []struct {
		dbType string
		path   string
		want   string
	}{
		{"", "", "migrations/sqlite"},
		{"sqlite", "", "migrations/sqlite"},
		{"postgresql", "", "migrations/postgres"},
		{"mysql", "", "migrations/mysql"},
		{"mysql", "/srv/migrations", "/srv/migrations"},
	}

	for _, tt := range tests {
		cfg := &Config{Database: DatabaseConfig{Type: tt.dbType, MigrationsPath: tt.path}}
		if got := cfg.MigrationsDir(); got != tt.want {
			t.Errorf("MigrationsDir(%q, %q) = %q, want %q", tt.dbType, tt.path, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		base          func() *Config
		errorContains string
	}{
		{name: "Valid development config", base: validConfig},
		{name: "Valid production config", base: productionConfig},
		{
			name:          "Missing server port",
			base:          validConfig,
			mutate:        func(c *Config) { c.Server.Port = "" },
			errorContains: "port",
		},
		{
			name:          "Unknown database type",
			base:          validConfig,
			mutate:        func(c *Config) { c.Database.Type = "oracle" },
			errorContains: "database.type",
		},
		{
			name:          "Missing JWT secret",
			base:          validConfig,
			mutate:        func(c *Config) { c.Auth.JWTSecret = "" },
			errorContains: "jwt_secret",
		},
		{
			name:          "Production with weak JWT secret",
			base:          productionConfig,
			mutate:        func(c *Config) { c.Auth.JWTSecret = "short" },
			errorContains: "32 chars",
		},
		{
			name:          "Production with default JWT secret",
			base:          productionConfig,
			mutate:        func(c *Config) { c.Auth.JWTSecret = DefaultJWTSecret },
			errorContains: "default value",
		},
		{
			name:          "Production without secure cookies",
			base:          productionConfig,
			mutate:        func(c *Config) { c.Auth.CookieSecure = false },
			errorContains: "cookie_secure",
		},
		{
			name:          "Production without database DSN",
			base:          productionConfig,
			mutate:        func(c *Config) { c.Database.DSN = "" },
			errorContains: "database.dsn",
		},
		{
			name:          "Zero access token duration",
			base:          validConfig,
			mutate:        func(c *Config) { c.Auth.AccessTokenDuration = 0 },
			errorContains: "access_token_duration",
		},
		{
			name:          "Zero refresh token duration",
			base:          validConfig,
			mutate:        func(c *Config) { c.Auth.RefreshTokenDuration = 0 },
			errorContains: "refresh_token_duration",
		},
		{
			name:          "Zero OTP ttl",
			base:          validConfig,
			mutate:        func(c *Config) { c.OTP.TTL = 0 },
			errorContains: "otp.ttl",
		},
		{
			name:          "Zero OTP attempts",
			base:          validConfig,
			mutate:        func(c *Config) { c.OTP.MaxAttempts = 0 },
			errorContains: "otp.max_attempts",
		},
		{
			name:          "Google enabled without credentials",
			base:          validConfig,
			mutate:        func(c *Config) { c.Google.Enabled = true },
			errorContains: "google.client_id",
		},
		{
			name: "Google enabled with credentials",
			base: validConfig,
			mutate: func(c *Config) {
				c.Google = GoogleOAuthConfig{Enabled: true, ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/cb"}
			},
		},
		{
			name:          "Rate limiter enabled with zero RPS",
			base:          validConfig,
			mutate:        func(c *Config) { c.RateLimiter.RPS = 0 },
			errorContains: "rps",
		},
		{
			name:          "Rate limiter enabled with zero burst",
			base:          validConfig,
			mutate:        func(c *Config) { c.RateLimiter.Burst = 0 },
			errorContains: "burst",
		},
		{
			name:   "Rate limiter disabled ignores values",
			base:   validConfig,
			mutate: func(c *Config) { c.RateLimiter = RateLimiterConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.base()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()

			if tt.errorContains == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.errorContains, err.Error())
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config with defaults: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", cfg.Environment)
	}
	if cfg.Auth.AccessTokenDuration != 15*time.Minute {
		t.Errorf("Expected default access token duration 15m, got %v", cfg.Auth.AccessTokenDuration)
	}
	if cfg.OTP.TTL != 10*time.Minute || cfg.OTP.MaxAttempts != 5 || cfg.OTP.ResendCooldown != 30*time.Second {
		t.Errorf("Unexpected OTP defaults: %+v", cfg.OTP)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("Expected cache ttl 60s, got %v", cfg.Cache.TTL)
	}
	if cfg.Chatbot.MaxMessageLength != 500 {
		t.Errorf("Expected chatbot limit 500, got %d", cfg.Chatbot.MaxMessageLength)
	}
	if cfg.Google.AuthURL != "https://accounts.google.com/o/oauth2/v2/auth" {
		t.Errorf("Unexpected Google auth url %q", cfg.Google.AuthURL)
	}
}

func TestLoadConfig_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9000")
	t.Setenv("APP_ENVIRONMENT", "test")
	t.Setenv("JWT_SECRET", "secret-from-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Expected port from env 9000, got %s", cfg.Server.Port)
	}
	if cfg.Environment != "test" {
		t.Errorf("Expected environment from env 'test', got %s", cfg.Environment)
	}
	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("Expected JWT secret from env, got %s", cfg.Auth.JWTSecret)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := "server:\n  port: \"7070\"\notp:\n  resend_cooldown: 45s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.OTP.ResendCooldown != 45*time.Second {
		t.Errorf("Expected cooldown 45s, got %v", cfg.OTP.ResendCooldown)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for a missing explicit config file")
	}
}
