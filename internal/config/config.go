// Package config provides application configuration management using Viper.
// Values come from an optional .env file, a YAML file and environment variables,
// with validation rules that tighten in production.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development placeholder refused in production / Valeur de dev refusée en production
const DefaultJWTSecret = "change-me-orientamada-dev-secret"

// Config holds all application configuration / Contient toute la configuration de l'application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Environment string            `mapstructure:"environment"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Backup      BackupConfig      `mapstructure:"backup"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Security    SecurityConfig    `mapstructure:"security"`
	OTP         OTPConfig         `mapstructure:"otp"`
	Google      GoogleOAuthConfig `mapstructure:"google"`
	Cors        CorsConfig        `mapstructure:"cors"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Pagination  PaginationConfig  `mapstructure:"pagination"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Chatbot     ChatbotConfig     `mapstructure:"chatbot"`
}

// ServerConfig holds server configuration / Configuration serveur
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BaseURL         string        `mapstructure:"base_url"`
	FrontendURL     string        `mapstructure:"frontend_url"`
}

// OTPConfig holds sign-up code settings / Configuration des codes d'inscription
type OTPConfig struct {
	TTL               time.Duration `mapstructure:"ttl"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	ResendCooldown    time.Duration `mapstructure:"resend_cooldown"`     // Minimum delay between two codes for one user
	ResendMaxAttempts int           `mapstructure:"resend_max_attempts"` // Resends allowed per email within ResendWindow
	ResendWindow      time.Duration `mapstructure:"resend_window"`
}

// GoogleOAuthConfig holds Google sign-in settings / Configuration de la connexion Google
type GoogleOAuthConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// DatabaseConfig holds database-specific configuration / Configuration de la base de données
type DatabaseConfig struct {
	Type           string `mapstructure:"type"`            // "sqlite", "mysql" or "postgres"
	DSN            string `mapstructure:"dsn"`
	MigrationsPath string `mapstructure:"migrations_path"` // Defaults to migrations/<type>
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

// BackupConfig holds database backup configuration / Configuration des sauvegardes de la base de données
type BackupConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	Path          string        `mapstructure:"path"`
	RetentionDays int           `mapstructure:"retention_days"`
}

// AuthConfig holds JWT and cookie configuration / Configuration JWT et cookies
type AuthConfig struct {
	JWTSecret            string        `mapstructure:"jwt_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	CookieDomain         string        `mapstructure:"cookie_domain"`
	CookiePath           string        `mapstructure:"cookie_path"`
	CookieSecure         bool          `mapstructure:"cookie_secure"`
	SingleSession        bool          `mapstructure:"single_session"` // Login revokes every other session
}

// SecurityConfig holds security settings / Paramètres de sécurité
type SecurityConfig struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	LockoutDuration   time.Duration `mapstructure:"lockout_duration"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

// CorsConfig holds CORS configuration / Configuration CORS
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimiterConfig holds rate limiter configuration / Configuration limiteur de débit
type RateLimiterConfig struct {
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
	Enabled bool    `mapstructure:"enabled"`
}

// SMTPConfig holds SMTP server configuration / Configuration serveur SMTP
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// LoggingConfig holds logging configuration / Configuration logging
type LoggingConfig struct {
	Level         string            `mapstructure:"level"`
	Format        string            `mapstructure:"format"`
	LokiEnabled   bool              `mapstructure:"loki_enabled"`
	LokiURL       string            `mapstructure:"loki_url"`
	LokiLabels    map[string]string `mapstructure:"loki_labels"`
	LokiBatchSize int               `mapstructure:"loki_batch_size"`
}

// CacheConfig holds reference-data cache settings / Configuration du cache des référentiels
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// PaginationConfig holds list bounds / Bornes des listes paginées
type PaginationConfig struct {
	DefaultPerPage int `mapstructure:"default_per_page"`
	MaxPerPage     int `mapstructure:"max_per_page"`
}

// MaintenanceConfig holds background purge settings / Configuration des purges
type MaintenanceConfig struct {
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

// ChatbotConfig holds chatbot limits / Limites du chatbot
type ChatbotConfig struct {
	MaxMessageLength int `mapstructure:"max_message_length"`
}

// IsProduction checks if environment is production / Vérifie si l'environnement est production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsProd is alias for IsProduction / Alias pour IsProduction
func (c *Config) IsProd() bool {
	return c.IsProduction()
}

// IsDevelopment checks if environment is development / Vérifie si l'environnement est development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsDev is alias for IsDevelopment / Alias pour IsDevelopment
func (c *Config) IsDev() bool {
	return c.IsDevelopment()
}

// MigrationsDir returns the migration directory for the configured driver / Répertoire des migrations
func (c *Config) MigrationsDir() string {
	if c.Database.MigrationsPath != "" {
		return c.Database.MigrationsPath
	}
	dbType := strings.ToLower(c.Database.Type)
	if dbType == "postgresql" {
		dbType = "postgres"
	}
	if dbType == "" {
		dbType = "sqlite"
	}
	return "migrations/" + dbType
}

// LoadConfig loads config.yaml from the working directory / Charge config.yaml depuis le répertoire courant
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load reads .env, the YAML file and env vars / Charge .env, le fichier YAML et les variables d'env
func Load(configFile string) (*Config, error) {
	// Missing .env is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets keep their conventional names
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("database.dsn", "DATABASE_DSN")
	_ = v.BindEnv("smtp.username", "SMTP_USERNAME")
	_ = v.BindEnv("smtp.password", "SMTP_PASSWORD")
	_ = v.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")

	var cfg Config
	err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "35s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("environment", "development")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "orientamada.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	v.SetDefault("database.migrations_path", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.access_token_duration", "15m")
	v.SetDefault("auth.refresh_token_duration", "720h")
	v.SetDefault("auth.cookie_domain", "localhost")
	v.SetDefault("auth.cookie_path", "/")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.single_session", true)

	v.SetDefault("security.max_failed_attempts", 5)
	v.SetDefault("security.lockout_duration", "15m")
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.trusted_proxies", []string{}) // Proxy headers are ignored unless configured
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("otp.ttl", "10m")
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.resend_cooldown", "30s")
	v.SetDefault("otp.resend_max_attempts", 5)
	v.SetDefault("otp.resend_window", "1h")

	v.SetDefault("google.enabled", false)
	v.SetDefault("google.redirect_url", "http://localhost:8080/api/v1/auth/google/callback")
	v.SetDefault("google.auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("google.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("google.userinfo_url", "https://openidconnect.googleapis.com/v1/userinfo")
	v.SetDefault("google.scopes", []string{"openid", "email", "profile"})

	v.SetDefault("rate_limiter.rps", 10)
	v.SetDefault("rate_limiter.burst", 20)
	v.SetDefault("rate_limiter.enabled", true)

	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 1025)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@orientamada.mg")

	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.interval", "24h")
	v.SetDefault("backup.path", "./backups")
	v.SetDefault("backup.retention_days", 7)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 512)
	v.SetDefault("cache.ttl", "60s")

	v.SetDefault("pagination.default_per_page", 20)
	v.SetDefault("pagination.max_per_page", 100)

	v.SetDefault("maintenance.purge_interval", "24h")
	v.SetDefault("chatbot.max_message_length", 500)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.loki_enabled", false)
	v.SetDefault("logging.loki_url", "http://localhost:3100")
	v.SetDefault("logging.loki_labels", map[string]string{
		"app":         "orientamada",
		"environment": "development",
	})
	v.SetDefault("logging.loki_batch_size", 10)
}

// Validate validates configuration / Valide la configuration
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateAuth,
		c.validateOTP,
		c.validateGoogle,
		c.validateRateLimiter,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	validDBTypes := []string{"sqlite", "mysql", "postgres", "postgresql", ""}
	dbType := strings.ToLower(c.Database.Type)

	if !slices.Contains(validDBTypes, dbType) {
		return errors.New("database.type must be one of: sqlite, mysql, postgres")
	}

	if c.IsProduction() && c.Database.DSN == "" {
		return errors.New("database.dsn is required in production")
	}

	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < 32 {
			return errors.New("auth.jwt_secret must be ≥32 chars in production")
		}
		if c.Auth.JWTSecret == DefaultJWTSecret {
			return errors.New("auth.jwt_secret cannot use default value in production - set JWT_SECRET environment variable")
		}
		if !c.Auth.CookieSecure {
			return errors.New("auth.cookie_secure must be true in production")
		}
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("auth.access_token_duration must be positive")
	}
	if c.Auth.RefreshTokenDuration <= 0 {
		return errors.New("auth.refresh_token_duration must be positive")
	}

	return nil
}

func (c *Config) validateOTP() error {
	if c.OTP.TTL <= 0 {
		return errors.New("otp.ttl must be positive")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("otp.max_attempts must be positive")
	}
	if c.OTP.ResendCooldown < 0 {
		return errors.New("otp.resend_cooldown cannot be negative")
	}
	return nil
}

func (c *Config) validateGoogle() error {
	if !c.Google.Enabled {
		return nil
	}
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		return errors.New("google.client_id and google.client_secret are required when google.enabled is true")
	}
	if c.Google.RedirectURL == "" {
		return errors.New("google.redirect_url is required when google.enabled is true")
	}
	return nil
}

func (c *Config) validateRateLimiter() error {
	if !c.RateLimiter.Enabled {
		return nil
	}

	if c.RateLimiter.RPS <= 0 {
		return errors.New("rate_limiter.rps must be positive when enabled")
	}

	if c.RateLimiter.Burst <= 0 {
		return errors.New("rate_limiter.burst must be positive when enabled")
	}

	return nil
}
