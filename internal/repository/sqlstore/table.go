package sqlstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository/db"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows / Satisfait par *sql.Row et *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// table describes how one reference entity maps to SQL / Décrit le mapping SQL d'une entité
type table[T any] struct {
	name    string
	alias   string
	selects string // column list, audit columns last
	from    string // table with its joins
	columns []string
	values  func(*T) []any
	scan    func(rowScanner, *T) error
	filters map[string]string // query key -> column
	search  []string
	sorts   map[string]string // sort key -> expression
	sortBy  string            // default sort key, "-" prefix for descending
}

type auditable interface {
	AuditInfo() *domain.Audit
}

func auditColumns(alias string) string {
	return fmt.Sprintf("%[1]s.created_at, %[1]s.updated_at, %[1]s.created_by, %[1]s.updated_by", alias)
}

func auditDest(a *domain.Audit) []any {
	return []any{&a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy}
}

// likeEscaper escapes LIKE wildcards for an ESCAPE '!' clause
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (t *table[T]) where(q domain.ListQuery, d Dialect) (string, []any, error) {
	var clauses []string
	var args []any

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		col, ok := t.filters[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", db.ErrInvalidFilter, key)
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, q.Filters[key])
	}

	if term := strings.TrimSpace(q.Q); term != "" && len(t.search) > 0 {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		likes := make([]string, len(t.search))
		for i, col := range t.search {
			likes[i] = d.Fold(col) + " LIKE " + d.Fold("?") + " ESCAPE '!'"
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+strings.Join(likes, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (t *table[T]) orderBy(sort string) (string, error) {
	if sort == "" {
		sort = t.sortBy
	}
	dir := "ASC"
	key := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		key = sort[1:]
	}
	expr, ok := t.sorts[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", db.ErrInvalidSort, key)
	}
	return fmt.Sprintf("%s %s, %s.id ASC", expr, dir, t.alias), nil
}

// catalogRepository implements ports.CatalogRepository over a table / Implémente le CRUD générique
type catalogRepository[T any] struct {
	c conn
	t *table[T]
}

var _ ports.CatalogRepository[domain.Region] = (*catalogRepository[domain.Region])(nil)

func newCatalogRepository[T any](c conn, t *table[T]) *catalogRepository[T] {
	return &catalogRepository[T]{c: c, t: t}
}

func (r *catalogRepository[T]) List(ctx context.Context, q domain.ListQuery) ([]T, int, error) {
	where, args, err := r.t.where(q, r.c.d)
	if err != nil {
		return nil, 0, err
	}
	order, err := r.t.orderBy(q.Sort)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.c.scanRow(ctx, "SELECT COUNT(*) FROM "+r.t.from+where, args, &total); err != nil {
		return nil, 0, err
	}

	page := q.Page.Normalize(0, 0)
	query := "SELECT " + r.t.selects + " FROM " + r.t.from + where + " ORDER BY " + order + " LIMIT ? OFFSET ?"
	rows, err := r.c.query(ctx, query, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]T, 0, page.PerPage)
	for rows.Next() {
		var item T
		if err := r.t.scan(rows, &item); err != nil {
			return nil, 0, r.c.d.TranslateError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.c.d.TranslateError(err)
	}

	return items, total, nil
}

func (r *catalogRepository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	query := "SELECT " + r.t.selects + " FROM " + r.t.from + " WHERE " + r.t.alias + ".id = ?"
	var item T
	if err := r.t.scan(r.c.queryRow(ctx, query, id), &item); err != nil {
		return nil, r.c.d.TranslateError(err)
	}
	return &item, nil
}

func (r *catalogRepository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	audit := auditOf(entity)
	ts := now()
	audit.CreatedAt, audit.UpdatedAt = ts, ts

	cols := append(slices.Clone(r.t.columns), "created_at", "updated_at", "created_by", "updated_by")
	args := append(r.t.values(entity), audit.CreatedAt, audit.UpdatedAt, audit.CreatedBy, audit.UpdatedBy)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", r.t.name, strings.Join(cols, ", "), placeholders(len(cols)))

	id, err := r.c.insert(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *catalogRepository[T]) Update(ctx context.Context, id int64, entity *T) (*T, error) {
	audit := auditOf(entity)
	audit.UpdatedAt = now()

	sets := make([]string, 0, len(r.t.columns)+2)
	for _, col := range r.t.columns {
		sets = append(sets, col+" = ?")
	}
	sets = append(sets, "updated_at = ?", "updated_by = ?")
	args := append(r.t.values(entity), audit.UpdatedAt, audit.UpdatedBy, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", r.t.name, strings.Join(sets, ", "))
	if err := r.c.execAffecting(ctx, query, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *catalogRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.c.execAffecting(ctx, "DELETE FROM "+r.t.name+" WHERE id = ?", id)
}

func auditOf[T any](entity *T) *domain.Audit {
	if a, ok := any(entity).(auditable); ok {
		return a.AuditInfo()
	}
	return &domain.Audit{}
}
