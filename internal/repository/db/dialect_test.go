package db

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestParseType(t *testing.T) {
	tests := map[string]DatabaseType{
		"":           SQLite,
		"SQLite":     SQLite,
		"sqlite3":    SQLite,
		"postgres":   PostgreSQL,
		"PostgreSQL": PostgreSQL,
		"mysql":      MySQL,
		"oracle":     DatabaseType("oracle"),
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseType(in), in)
	}
	assert.False(t, ParseType("oracle").IsValid())
	assert.True(t, ParseType("").IsValid())
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("app:secret@tcp(localhost:3306)/orientamada")
	require.NoError(t, err)

	cfg, err := mysqldriver.ParseDSN(dsn)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "UTC", cfg.Loc.String())
	assert.Equal(t, "'+00:00'", cfg.Params["time_zone"])
	assert.Contains(t, cfg.Params["sql_mode"], "TRADITIONAL")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"app.db", "app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"file:app.db?cache=shared", "file:app.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"file::memory:?_pragma=foreign_keys(1)", "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"app.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(0)", "app.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(0)"},
	}
	for _, tt := range tests {
		got, err := sqliteDSN(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

// Every pooled connection enforces foreign keys, not only the one the setup ran on
func TestOpen_SQLiteForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, Options{Type: SQLite, DSN: "file:" + t.TempDir() + "/fk.db", MaxOpenConns: 4, MaxIdleConns: 4})
	require.NoError(t, err)
	defer conn.Close()

	var held []*sql.Conn
	defer func() {
		for _, c := range held {
			c.Close()
		}
	}()
	for range 4 {
		c, err := conn.Conn(ctx)
		require.NoError(t, err)
		held = append(held, c)

		var fk int
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	conn, err := Open(ctx, Options{Type: SQLite, DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	defer conn.Close()

	var fk int
	require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
	assert.Equal(t, 1, conn.Stats().MaxOpenConnections)

	_, err = Open(ctx, Options{Type: "oracle"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))
}
