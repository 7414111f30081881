// Package app wires configuration, storage, services and background tasks.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/metrics"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
	"github.com/orientamada/orientamada/internal/repository/db"
	"github.com/orientamada/orientamada/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Container holds application dependencies / Contient les dépendances de l'application
type Container struct {
	DB       *sql.DB
	Config   *config.Config
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	UserRepo          ports.UserRepository
	RefreshTokenStore ports.RefreshTokenStore
	OTPRepo           ports.OTPRepository

	Catalogs        *service.Catalogs
	UserSvc         *service.UserService
	AuthSvc         *service.AuthService
	PasswordSvc     *service.PasswordService
	VerificationSvc *service.VerificationService
	GoogleSvc       *service.GoogleOAuthService
	ReviewSvc       *service.ReviewService
	StatsSvc        *service.StatsService
	Chatbot         *service.Chatbot

	emailSender ports.EmailSender
	cancel      context.CancelFunc
	tasks       sync.WaitGroup
	closeOnce   sync.Once
}

// Option customizes the container before services are built / Personnalise le conteneur
type Option func(*Container)

// WithEmailSender replaces the SMTP sender / Remplace l'expéditeur SMTP
func WithEmailSender(sender ports.EmailSender) Option {
	return func(c *Container) { c.emailSender = sender }
}

// NewContainer opens the database, migrates it and builds every service / Initialise le conteneur
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	c := &Container{Config: cfg, Registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(c)
	}

	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewMetrics(c.Registry)

	if err := c.initDatabase(); err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	if err := c.runMigrations(); err != nil {
		c.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	if err := c.initServices(); err != nil {
		c.Close()
		return nil, fmt.Errorf("service init: %w", err)
	}

	c.startBackgroundTasks()
	c.updateDatabaseMetrics()

	return c, nil
}

func (c *Container) dbType() db.DatabaseType {
	return db.ParseType(c.Config.Database.Type)
}

// OpenDatabase connects with the configured driver and pool settings / Ouvre la connexion configurée
func OpenDatabase(cfg *config.Config) (*sql.DB, error) {
	c := &Container{Config: cfg}
	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	return c.DB, nil
}

// NewMigrator binds the configured migration directory to database / Lie les migrations à la BD
func NewMigrator(cfg *config.Config, database *sql.DB) (*db.Migrator, error) {
	c := &Container{Config: cfg}
	return db.NewMigrator(database, c.dbType(), cfg.MigrationsDir())
}

func (c *Container) initDatabase() error {
	dbType := c.dbType()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.Open(ctx, db.Options{
		Type:         dbType,
		DSN:          c.Config.Database.DSN,
		MaxOpenConns: c.Config.Database.MaxOpenConns,
		MaxIdleConns: c.Config.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize %s database: %w", dbType, err)
	}

	c.DB = database
	return nil
}

func (c *Container) runMigrations() error {
	migrator, err := NewMigrator(c.Config, c.DB)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		return err
	}
	slog.Info("database migrations applied", "dir", c.Config.MigrationsDir())
	return nil
}

func (c *Container) initServices() error {
	adapter := repository.NewAdapter(c.DB, string(c.dbType()))
	c.UserRepo = adapter.UserRepository()
	c.RefreshTokenStore = adapter.RefreshTokenStore()
	c.OTPRepo = adapter.OTPRepository()

	if c.emailSender == nil {
		sender, err := service.NewSMTPSender(c.Config.SMTP)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		c.emailSender = sender
	}

	var err error
	c.VerificationSvc, err = service.NewVerificationService(c.UserRepo, c.OTPRepo, c.emailSender, c.Config, c.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize verification service: %w", err)
	}

	c.PasswordSvc, err = service.NewPasswordService(c.UserRepo, c.RefreshTokenStore, c.emailSender, c.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize password service: %w", err)
	}

	c.UserSvc = service.NewUserService(c.UserRepo, c.RefreshTokenStore, c.VerificationSvc, c.Config, c.Metrics)
	c.AuthSvc = service.NewAuthService(c.UserRepo, c.RefreshTokenStore, c.Config, c.DB, c.Metrics)
	c.GoogleSvc = service.NewGoogleOAuthService(c.UserRepo, c.RefreshTokenStore, c.Config)

	repos := adapter.CatalogRepositories()
	c.Catalogs = service.NewCatalogs(repos, c.Config, c.Metrics)
	c.ReviewSvc = service.NewReviewService(adapter.ReviewRepository(), repos.Establishments, c.UserRepo, c.Config, c.Metrics)
	c.StatsSvc = service.NewStatsService(adapter.StatsRepository(), c.UserRepo)

	c.Chatbot, err = service.NewChatbot(adapter.NameIndex(), c.Config, c.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize chatbot: %w", err)
	}

	slog.Info("services initialized", "database", c.dbType())
	return nil
}

// startBackgroundTasks runs the purges and the optional backup until Close / Lance les tâches de fond
func (c *Container) startBackgroundTasks() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	interval := c.Config.Maintenance.PurgeInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	c.runPeriodic(ctx, "token_purge", interval, func(ctx context.Context) error {
		n, err := c.RefreshTokenStore.PurgeExpired(ctx, time.Now())
		if err == nil && n > 0 {
			slog.Info("expired refresh tokens purged", "count", n)
		}
		return err
	})
	c.runPeriodic(ctx, "otp_purge", interval, func(ctx context.Context) error {
		n, err := c.OTPRepo.PurgeExpired(ctx, time.Now())
		if err == nil && n > 0 {
			slog.Info("expired sign-up codes purged", "count", n)
		}
		return err
	})

	if c.Config.Backup.Enabled {
		slog.Info("automatic database backup enabled",
			"interval", c.Config.Backup.Interval,
			"retention_days", c.Config.Backup.RetentionDays,
		)
		c.runPeriodic(ctx, "database_backup", c.Config.Backup.Interval, func(ctx context.Context) error {
			if _, err := c.Backup(ctx); err != nil {
				return err
			}
			return c.cleanOldBackups()
		})
	}
}

// runPeriodic calls fn every interval until ctx ends / Appelle fn à chaque intervalle
func (c *Container) runPeriodic(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		c.Metrics.SetBackgroundTaskStatus(name, true)
		defer c.Metrics.SetBackgroundTaskStatus(name, false)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					slog.Error("background task failed", "task", name, "error", err)
				}
				c.updateDatabaseMetrics()
			case <-ctx.Done():
				slog.Debug("background task stopped", "task", name)
				return
			}
		}
	}()
}

func (c *Container) updateDatabaseMetrics() {
	c.Metrics.UpdateDatabaseConnections(c.DB.Stats().OpenConnections)
}

// Close stops background work, the services and the database / Arrête proprement le conteneur
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.tasks.Wait()

		if c.AuthSvc != nil {
			c.AuthSvc.Close()
		}
		if c.VerificationSvc != nil {
			c.VerificationSvc.Close()
		}
		if c.PasswordSvc != nil {
			c.PasswordSvc.Close()
		}
		if c.DB != nil {
			slog.Info("closing database")
			err = c.DB.Close()
		}
	})
	return err
}
