// Package sqlstore holds the SQL shared by the sqlite, postgres and mysql
// repositories. Queries are written with "?" placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/orientamada/orientamada/internal/ports"
)

// Dialect captures what differs between database engines / Ce qui diffère entre moteurs
type Dialect interface {
	// Name is the driver name used by the factory registry / Nom du driver
	Name() string
	// NumberedPlaceholders is true when "?" must become "$1", "$2"... / Vrai si "?" devient "$n"
	NumberedPlaceholders() bool
	// ReturningID is true when inserts read the id through RETURNING / Vrai si l'id est lu via RETURNING
	ReturningID() bool
	// TranslateError maps driver errors to db sentinels / Traduit les erreurs du driver
	TranslateError(err error) error
	// Fold wraps a column or placeholder so LIKE ignores case, and accents where the engine allows it
	// Rend LIKE insensible à la casse, et aux accents si possible
	Fold(expr string) string
}

// conn runs rebound queries and translates their errors / Exécute les requêtes et traduit les erreurs
type conn struct {
	db ports.DBTX
	d  Dialect
}

func (c conn) rebind(query string) string {
	if !c.d.NumberedPlaceholders() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.db.ExecContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, c.d.TranslateError(err)
	}
	return res, nil
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.db.QueryContext(ctx, c.rebind(query), args...)
	if err != nil {
		return nil, c.d.TranslateError(err)
	}
	return rows, nil
}

// queryRow leaves error translation to the caller's Scan / La traduction se fait au Scan
func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.rebind(query), args...)
}

// scanRow scans a single row and translates sql.ErrNoRows / Scanne une ligne et traduit sql.ErrNoRows
func (c conn) scanRow(ctx context.Context, query string, args []any, dest ...any) error {
	return c.d.TranslateError(c.queryRow(ctx, query, args...).Scan(dest...))
}

// insert runs an INSERT and returns the generated id / Exécute un INSERT et retourne l'id généré
func (c conn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if c.d.ReturningID() {
		var id int64
		if err := c.scanRow(ctx, query+" RETURNING id", args, &id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, c.d.TranslateError(err)
	}
	return id, nil
}

// execAffecting fails with ErrNoRecord when no row changed / Échoue avec ErrNoRecord si aucune ligne
func (c conn) execAffecting(ctx context.Context, query string, args ...any) error {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return c.d.TranslateError(err)
	}
	if n == 0 {
		return c.d.TranslateError(sql.ErrNoRows)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
