package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
)

// Options configures a connection pool / Configure un pool de connexions
type Options struct {
	Type         DatabaseType
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// dialect gathers what differs between the supported engines
type dialect struct {
	driver      string // database/sql driver name
	migrateName string
	prepareDSN  func(dsn string) (string, error)
	// best effort, run once on the first connection
	setup   []string
	migrate func(*sql.DB) (database.Driver, error)
}

var dialects = map[DatabaseType]dialect{
	SQLite: {
		driver:      "sqlite",
		migrateName: "sqlite3",
		prepareDSN:  sqliteDSN,
		setup: []string{
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA trusted_schema=OFF",
		},
		migrate: func(conn *sql.DB) (database.Driver, error) {
			return sqlite.WithInstance(conn, &sqlite.Config{})
		},
	},
	MySQL: {
		driver:      "mysql",
		migrateName: "mysql",
		prepareDSN:  mysqlDSN,
		migrate: func(conn *sql.DB) (database.Driver, error) {
			return mysql.WithInstance(conn, &mysql.Config{})
		},
	},
	PostgreSQL: {
		driver:      "postgres",
		migrateName: "postgres",
		prepareDSN:  keepDSN,
		setup:       []string{"SET TIME ZONE 'UTC'"},
		migrate: func(conn *sql.DB) (database.Driver, error) {
			return postgres.WithInstance(conn, &postgres.Config{})
		},
	},
}

func lookup(t DatabaseType) (dialect, error) {
	d, ok := dialects[t]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database type: %q", t)
	}
	return d, nil
}

func keepDSN(dsn string) (string, error) { return dsn, nil }

// pragmas every pooled sqlite connection needs, not only the first one
var sqlitePragmas = []struct{ name, value string }{
	{"foreign_keys", "foreign_keys(1)"},
	{"busy_timeout", "busy_timeout(5000)"},
}

// sqliteDSN adds the connection pragmas the DSN does not set / Ajoute les pragmas absents du DSN
func sqliteDSN(dsn string) (string, error) {
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, p.name) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + p.value
	}
	return dsn, nil
}

// mysqlDSN forces parseTime, UTC and a strict sql_mode on every pooled connection / Force parseTime, UTC et sql_mode strict
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["sql_mode"]; !ok {
		cfg.Params["sql_mode"] = "'TRADITIONAL,NO_AUTO_VALUE_ON_ZERO'"
	}
	cfg.Params["time_zone"] = "'+00:00'"
	return cfg.FormatDSN(), nil
}

// Open connects, sizes the pool and pings the database / Connecte, dimensionne le pool et vérifie la BD
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	d, err := lookup(opts.Type)
	if err != nil {
		return nil, err
	}
	dsn, err := d.prepareDSN(opts.DSN)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Type, err)
	}

	maxOpen, maxIdle := opts.MaxOpenConns, opts.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Type, err)
	}
	for _, stmt := range d.setup {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			slog.Warn("database setup statement failed", "type", opts.Type, "stmt", stmt, "error", err)
		}
	}

	slog.Info("database connected", "type", opts.Type, "max_open_conns", maxOpen)
	return conn, nil
}
