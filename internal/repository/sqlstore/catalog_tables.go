package sqlstore

import (
	"database/sql"

	"github.com/orientamada/orientamada/internal/domain"
)

var regionTable = &table[domain.Region]{
	name:    "regions",
	alias:   "r",
	selects: "r.id, r.name, r.code, (SELECT COUNT(*) FROM cities cc WHERE cc.region_id = r.id), " + auditColumns("r"),
	from:    "regions r",
	columns: []string{"name", "code"},
	values:  func(e *domain.Region) []any { return []any{e.Name, e.Code} },
	scan: func(row rowScanner, e *domain.Region) error {
		return row.Scan(append([]any{&e.ID, &e.Name, &e.Code, &e.CityCount}, auditDest(&e.Audit)...)...)
	},
	search: []string{"r.name"},
	sorts:  map[string]string{"name": "r.name", "code": "r.code", "created_at": "r.created_at"},
	sortBy: "name",
}

var cityTable = &table[domain.City]{
	name:    "cities",
	alias:   "c",
	selects: "c.id, c.name, c.postal_code, c.region_id, r.name, r.code, " + auditColumns("c"),
	from:    "cities c JOIN regions r ON r.id = c.region_id",
	columns: []string{"name", "postal_code", "region_id"},
	values:  func(e *domain.City) []any { return []any{e.Name, e.PostalCode, e.RegionID} },
	scan: func(row rowScanner, e *domain.City) error {
		region := &domain.Region{}
		dest := append([]any{&e.ID, &e.Name, &e.PostalCode, &e.RegionID, &region.Name, &region.Code}, auditDest(&e.Audit)...)
		if err := row.Scan(dest...); err != nil {
			return err
		}
		region.ID = e.RegionID
		e.Region = region
		return nil
	},
	filters: map[string]string{"region_id": "c.region_id"},
	search:  []string{"c.name"},
	sorts:   map[string]string{"name": "c.name", "postal_code": "c.postal_code", "region": "r.name", "created_at": "c.created_at"},
	sortBy:  "name",
}

var domainTable = &table[domain.Domain]{
	name:    "domains",
	alias:   "d",
	selects: "d.id, d.name, d.description, " + auditColumns("d"),
	from:    "domains d",
	columns: []string{"name", "description"},
	values:  func(e *domain.Domain) []any { return []any{e.Name, e.Description} },
	scan: func(row rowScanner, e *domain.Domain) error {
		return row.Scan(append([]any{&e.ID, &e.Name, &e.Description}, auditDest(&e.Audit)...)...)
	},
	search: []string{"d.name"},
	sorts:  map[string]string{"name": "d.name", "created_at": "d.created_at"},
	sortBy: "name",
}

var mentionTable = &table[domain.Mention]{
	name:    "mentions",
	alias:   "m",
	selects: "m.id, m.name, m.description, m.domain_id, d.name, " + auditColumns("m"),
	from:    "mentions m JOIN domains d ON d.id = m.domain_id",
	columns: []string{"name", "description", "domain_id"},
	values:  func(e *domain.Mention) []any { return []any{e.Name, e.Description, e.DomainID} },
	scan: func(row rowScanner, e *domain.Mention) error {
		parent := &domain.Domain{}
		if err := row.Scan(append([]any{&e.ID, &e.Name, &e.Description, &e.DomainID, &parent.Name}, auditDest(&e.Audit)...)...); err != nil {
			return err
		}
		parent.ID = e.DomainID
		e.Domain = parent
		return nil
	},
	filters: map[string]string{"domain_id": "m.domain_id"},
	search:  []string{"m.name"},
	sorts:   map[string]string{"name": "m.name", "domain": "d.name", "created_at": "m.created_at"},
	sortBy:  "name",
}

var levelTable = &table[domain.Level]{
	name:    "levels",
	alias:   "l",
	selects: "l.id, l.code, l.name, l.sort_order, " + auditColumns("l"),
	from:    "levels l",
	columns: []string{"code", "name", "sort_order"},
	values:  func(e *domain.Level) []any { return []any{e.Code, e.Name, e.Rank} },
	scan: func(row rowScanner, e *domain.Level) error {
		return row.Scan(append([]any{&e.ID, &e.Code, &e.Name, &e.Rank}, auditDest(&e.Audit)...)...)
	},
	search: []string{"l.name", "l.code"},
	sorts:  map[string]string{"rank": "l.sort_order", "code": "l.code", "name": "l.name"},
	sortBy: "rank",
}

var sectorTable = &table[domain.Sector]{
	name:    "sectors",
	alias:   "s",
	selects: "s.id, s.name, " + auditColumns("s"),
	from:    "sectors s",
	columns: []string{"name"},
	values:  func(e *domain.Sector) []any { return []any{e.Name} },
	scan: func(row rowScanner, e *domain.Sector) error {
		return row.Scan(append([]any{&e.ID, &e.Name}, auditDest(&e.Audit)...)...)
	},
	search: []string{"s.name"},
	sorts:  map[string]string{"name": "s.name"},
	sortBy: "name",
}

var establishmentTypeTable = &table[domain.EstablishmentType]{
	name:    "establishment_types",
	alias:   "t",
	selects: "t.id, t.name, t.description, " + auditColumns("t"),
	from:    "establishment_types t",
	columns: []string{"name", "description"},
	values:  func(e *domain.EstablishmentType) []any { return []any{e.Name, e.Description} },
	scan: func(row rowScanner, e *domain.EstablishmentType) error {
		return row.Scan(append([]any{&e.ID, &e.Name, &e.Description}, auditDest(&e.Audit)...)...)
	},
	search: []string{"t.name"},
	sorts:  map[string]string{"name": "t.name"},
	sortBy: "name",
}

const ratingAverageExpr = "(SELECT COALESCE(AVG(rv.rating), 0) FROM reviews rv WHERE rv.establishment_id = e.id)"

var establishmentTable = &table[domain.Establishment]{
	name:  "establishments",
	alias: "e",
	selects: "e.id, e.name, e.acronym, e.description, e.address, e.phone, e.email, e.website, e.logo_url, " +
		"e.city_id, e.establishment_type_id, e.sector_id, c.name, c.region_id, r.name, t.name, s.name, " +
		ratingAverageExpr + ", (SELECT COUNT(*) FROM reviews rc WHERE rc.establishment_id = e.id), " +
		auditColumns("e"),
	from: "establishments e " +
		"JOIN cities c ON c.id = e.city_id " +
		"JOIN regions r ON r.id = c.region_id " +
		"LEFT JOIN establishment_types t ON t.id = e.establishment_type_id " +
		"LEFT JOIN sectors s ON s.id = e.sector_id",
	columns: []string{
		"name", "acronym", "description", "address", "phone", "email", "website", "logo_url",
		"city_id", "establishment_type_id", "sector_id",
	},
	values: func(e *domain.Establishment) []any {
		return []any{
			e.Name, e.Acronym, e.Description, e.Address, e.Phone, e.Email, e.Website, e.LogoURL,
			e.CityID, e.TypeID, e.SectorID,
		}
	},
	scan: func(row rowScanner, e *domain.Establishment) error {
		city := &domain.City{Region: &domain.Region{}}
		var typeName, sectorName sql.NullString
		dest := []any{
			&e.ID, &e.Name, &e.Acronym, &e.Description, &e.Address, &e.Phone, &e.Email, &e.Website, &e.LogoURL,
			&e.CityID, &e.TypeID, &e.SectorID, &city.Name, &city.RegionID, &city.Region.Name,
			&typeName, &sectorName, &e.RatingAverage, &e.ReviewCount,
		}
		if err := row.Scan(append(dest, auditDest(&e.Audit)...)...); err != nil {
			return err
		}
		city.ID = e.CityID
		city.Region.ID = city.RegionID
		e.City = city
		if e.TypeID != nil && typeName.Valid {
			e.Type = &domain.EstablishmentType{ID: *e.TypeID, Name: typeName.String}
		}
		if e.SectorID != nil && sectorName.Valid {
			e.Sector = &domain.Sector{ID: *e.SectorID, Name: sectorName.String}
		}
		return nil
	},
	filters: map[string]string{
		"city_id":   "e.city_id",
		"region_id": "c.region_id",
		"type_id":   "e.establishment_type_id",
		"sector_id": "e.sector_id",
	},
	search: []string{"e.name", "e.acronym"},
	sorts: map[string]string{
		"name":       "e.name",
		"acronym":    "e.acronym",
		"city":       "c.name",
		"region":     "r.name",
		"rating":     ratingAverageExpr,
		"created_at": "e.created_at",
	},
	sortBy: "name",
}

var formationTable = &table[domain.Formation]{
	name:  "formations",
	alias: "f",
	selects: "f.id, f.name, f.description, f.duration_months, f.diploma, f.admission_requirements, f.tuition_fee, " +
		"f.establishment_id, f.mention_id, f.level_id, e.name, e.acronym, e.city_id, c.name, " +
		"m.name, m.domain_id, d.name, l.code, l.name, l.sort_order, " + auditColumns("f"),
	from: "formations f " +
		"JOIN establishments e ON e.id = f.establishment_id " +
		"JOIN cities c ON c.id = e.city_id " +
		"LEFT JOIN mentions m ON m.id = f.mention_id " +
		"LEFT JOIN domains d ON d.id = m.domain_id " +
		"LEFT JOIN levels l ON l.id = f.level_id",
	columns: []string{
		"name", "description", "duration_months", "diploma", "admission_requirements", "tuition_fee",
		"establishment_id", "mention_id", "level_id",
	},
	values: func(f *domain.Formation) []any {
		return []any{
			f.Name, f.Description, f.DurationMonths, f.Diploma, f.AdmissionRequirements, f.TuitionFee,
			f.EstablishmentID, f.MentionID, f.LevelID,
		}
	},
	scan: func(row rowScanner, f *domain.Formation) error {
		est := &domain.Establishment{City: &domain.City{}}
		var mentionName, domainName, levelCode, levelName sql.NullString
		var domainID, levelRank sql.NullInt64
		dest := []any{
			&f.ID, &f.Name, &f.Description, &f.DurationMonths, &f.Diploma, &f.AdmissionRequirements, &f.TuitionFee,
			&f.EstablishmentID, &f.MentionID, &f.LevelID, &est.Name, &est.Acronym, &est.CityID, &est.City.Name,
			&mentionName, &domainID, &domainName, &levelCode, &levelName, &levelRank,
		}
		if err := row.Scan(append(dest, auditDest(&f.Audit)...)...); err != nil {
			return err
		}
		est.ID = f.EstablishmentID
		est.City.ID = est.CityID
		f.Establishment = est
		if f.MentionID != nil && mentionName.Valid {
			f.Mention = &domain.Mention{ID: *f.MentionID, Name: mentionName.String, DomainID: domainID.Int64}
			if domainName.Valid {
				f.Mention.Domain = &domain.Domain{ID: domainID.Int64, Name: domainName.String}
			}
		}
		if f.LevelID != nil && levelName.Valid {
			f.Level = &domain.Level{ID: *f.LevelID, Code: levelCode.String, Name: levelName.String, Rank: int(levelRank.Int64)}
		}
		return nil
	},
	filters: map[string]string{
		"establishment_id": "f.establishment_id",
		"mention_id":       "f.mention_id",
		"domain_id":        "m.domain_id",
		"level_id":         "f.level_id",
		"city_id":          "e.city_id",
	},
	search: []string{"f.name", "f.diploma"},
	sorts: map[string]string{
		"name":        "f.name",
		"duration":    "f.duration_months",
		"tuition_fee": "f.tuition_fee",
		"level":       "l.sort_order",
		"created_at":  "f.created_at",
	},
	sortBy: "name",
}

var authorizationTable = &table[domain.FormationAuthorization]{
	name:    "formation_authorizations",
	alias:   "a",
	selects: "a.id, a.formation_id, a.reference, a.status, a.granted_at, a.expires_at, " + auditColumns("a"),
	from:    "formation_authorizations a",
	columns: []string{"formation_id", "reference", "status", "granted_at", "expires_at"},
	values: func(a *domain.FormationAuthorization) []any {
		return []any{a.FormationID, a.Reference, string(a.Status), a.GrantedAt, a.ExpiresAt}
	},
	scan: func(row rowScanner, a *domain.FormationAuthorization) error {
		dest := []any{&a.ID, &a.FormationID, &a.Reference, &a.Status, &a.GrantedAt, &a.ExpiresAt}
		return row.Scan(append(dest, auditDest(&a.Audit)...)...)
	},
	filters: map[string]string{"formation_id": "a.formation_id"},
	search:  []string{"a.reference"},
	sorts:   map[string]string{"granted_at": "a.granted_at", "expires_at": "a.expires_at", "status": "a.status", "reference": "a.reference"},
	sortBy:  "-granted_at",
}

var headcountTable = &table[domain.AnnualHeadcount]{
	name:    "annual_headcounts",
	alias:   "h",
	selects: "h.id, h.formation_id, h.academic_year, h.student_count, h.female_count, h.graduate_count, " + auditColumns("h"),
	from:    "annual_headcounts h",
	columns: []string{"formation_id", "academic_year", "student_count", "female_count", "graduate_count"},
	values: func(h *domain.AnnualHeadcount) []any {
		return []any{h.FormationID, h.AcademicYear, h.StudentCount, h.FemaleCount, h.GraduateCount}
	},
	scan: func(row rowScanner, h *domain.AnnualHeadcount) error {
		dest := []any{&h.ID, &h.FormationID, &h.AcademicYear, &h.StudentCount, &h.FemaleCount, &h.GraduateCount}
		return row.Scan(append(dest, auditDest(&h.Audit)...)...)
	},
	filters: map[string]string{"formation_id": "h.formation_id"},
	search:  []string{"h.academic_year"},
	sorts:   map[string]string{"academic_year": "h.academic_year", "student_count": "h.student_count"},
	sortBy:  "-academic_year",
}
