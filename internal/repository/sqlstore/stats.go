package sqlstore

import (
	"context"
	"fmt"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository/db"
)

var (
	_ ports.StatsRepository = (*statsRepository)(nil)
	_ ports.NameIndex       = (*statsRepository)(nil)
)

// countable lists the tables Count accepts / Tables acceptées par Count
var countable = map[string]string{
	"regions":        "SELECT COUNT(*) FROM regions",
	"cities":         "SELECT COUNT(*) FROM cities",
	"domains":        "SELECT COUNT(*) FROM domains",
	"mentions":       "SELECT COUNT(*) FROM mentions",
	"establishments": "SELECT COUNT(*) FROM establishments",
	"formations":     "SELECT COUNT(*) FROM formations",
	"reviews":        "SELECT COUNT(*) FROM reviews",
}

// Groupings accepted by CountGrouped / Regroupements acceptés par CountGrouped
const (
	GroupEstablishmentsPerRegion = "establishments_per_region"
	GroupEstablishmentsPerSector = "establishments_per_sector"
	GroupFormationsPerLevel      = "formations_per_level"
)

var groupings = map[string]string{
	GroupEstablishmentsPerRegion: `SELECT r.name, COUNT(e.id)
		FROM regions r
		LEFT JOIN cities c ON c.region_id = r.id
		LEFT JOIN establishments e ON e.city_id = c.id
		GROUP BY r.id, r.name
		ORDER BY r.name`,
	GroupEstablishmentsPerSector: `SELECT COALESCE(s.name, 'Non renseigné'), COUNT(e.id)
		FROM establishments e
		LEFT JOIN sectors s ON s.id = e.sector_id
		GROUP BY s.name
		ORDER BY COUNT(e.id) DESC`,
	GroupFormationsPerLevel: `SELECT COALESCE(l.name, 'Non renseigné'), COUNT(f.id)
		FROM formations f
		LEFT JOIN levels l ON l.id = f.level_id
		GROUP BY l.name, l.sort_order
		ORDER BY COALESCE(l.sort_order, 9999)`,
}

type statsRepository struct {
	c conn
}

func (r *statsRepository) Count(ctx context.Context, tableName string) (int, error) {
	query, ok := countable[tableName]
	if !ok {
		return 0, fmt.Errorf("%w: count %s", db.ErrInvalidFilter, tableName)
	}
	var n int
	err := r.c.scanRow(ctx, query, nil, &n)
	return n, err
}

func (r *statsRepository) CountGrouped(ctx context.Context, grouping string) ([]domain.StatBucket, error) {
	query, ok := groupings[grouping]
	if !ok {
		return nil, fmt.Errorf("%w: grouping %s", db.ErrInvalidFilter, grouping)
	}

	rows, err := r.c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []domain.StatBucket{}
	for rows.Next() {
		var b domain.StatBucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, r.c.d.TranslateError(err)
		}
		buckets = append(buckets, b)
	}
	return buckets, r.c.d.TranslateError(rows.Err())
}

// SearchableNames lists domains, mentions and establishments with acronyms / Liste les noms suggérables
func (r *statsRepository) SearchableNames(ctx context.Context) ([]domain.NamedRef, error) {
	query := `SELECT 'domain', id, name FROM domains
		UNION ALL SELECT 'mention', id, name FROM mentions
		UNION ALL SELECT 'establishment', id, name FROM establishments
		UNION ALL SELECT 'establishment', id, acronym FROM establishments WHERE acronym <> ''`

	rows, err := r.c.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.NamedRef
	for rows.Next() {
		var ref domain.NamedRef
		if err := rows.Scan(&ref.Kind, &ref.ID, &ref.Name); err != nil {
			return nil, r.c.d.TranslateError(err)
		}
		refs = append(refs, ref)
	}
	return refs, r.c.d.TranslateError(rows.Err())
}
