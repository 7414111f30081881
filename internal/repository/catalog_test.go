package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/testutil"
)

type catalogFixture struct {
	repos      ports.CatalogRepositories
	analamanga *domain.Region
	atsinanana *domain.Region
	tana       *domain.City
	toamasina  *domain.City
	science    *domain.Domain
	info       *domain.Mention
	licence    *domain.Level
	public     *domain.Sector
	university *domain.EstablishmentType
	ua         *domain.Establishment
}

func mustCreate[T any](t *testing.T, repo ports.CatalogRepository[T], entity *T) *T {
	t.Helper()
	created, err := repo.Create(context.Background(), entity)
	if err != nil {
		t.Fatalf("fixture %T: %v", entity, err)
	}
	return created
}

func newCatalogFixture(t *testing.T) (*catalogFixture, *Adapter) {
	t.Helper()
	adapter := NewSQLiteAdapter(testutil.NewSQLiteDB(t))
	r := adapter.CatalogRepositories()
	f := &catalogFixture{repos: r}
	f.analamanga = mustCreate(t, r.Regions, &domain.Region{Name: "Analamanga", Code: "ANA"})
	f.atsinanana = mustCreate(t, r.Regions, &domain.Region{Name: "Atsinanana", Code: "ATS"})
	f.tana = mustCreate(t, r.Cities, &domain.City{Name: "Antananarivo", PostalCode: "101", RegionID: f.analamanga.ID})
	f.toamasina = mustCreate(t, r.Cities, &domain.City{Name: "Toamasina", PostalCode: "501", RegionID: f.atsinanana.ID})
	f.science = mustCreate(t, r.Domains, &domain.Domain{Name: "Sciences et Technologies"})
	f.info = mustCreate(t, r.Mentions, &domain.Mention{Name: "Informatique", DomainID: f.science.ID})
	f.licence = mustCreate(t, r.Levels, &domain.Level{Code: "L3", Name: "Licence", Rank: 3})
	f.public = mustCreate(t, r.Sectors, &domain.Sector{Name: "Public"})
	f.university = mustCreate(t, r.EstablishmentTypes, &domain.EstablishmentType{Name: "Université"})
	f.ua = mustCreate(t, r.Establishments, &domain.Establishment{
		Name:     "Université d'Antananarivo",
		Acronym:  "UA",
		CityID:   f.tana.ID,
		TypeID:   &f.university.ID,
		SectorID: &f.public.ID,
	})
	return f, adapter
}

func TestCatalog_CreateLoadsRelations(t *testing.T) {
	f, _ := newCatalogFixture(t)

	if f.tana.Region == nil || f.tana.Region.Name != "Analamanga" {
		t.Errorf("Expected city region to be loaded, got %+v", f.tana.Region)
	}
	if f.info.Domain == nil || f.info.Domain.Name != "Sciences et Technologies" {
		t.Errorf("Expected mention domain to be loaded, got %+v", f.info.Domain)
	}
	if f.ua.City == nil || f.ua.City.Region == nil || f.ua.City.Region.Name != "Analamanga" {
		t.Errorf("Expected establishment city and region, got %+v", f.ua.City)
	}
	if f.ua.Type == nil || f.ua.Type.Name != "Université" || f.ua.Sector == nil || f.ua.Sector.Name != "Public" {
		t.Errorf("Expected establishment type and sector, got %+v / %+v", f.ua.Type, f.ua.Sector)
	}
	if f.ua.CreatedAt.IsZero() || f.ua.UpdatedAt.IsZero() {
		t.Error("Expected audit timestamps to be set")
	}

	region, err := f.repos.Regions.GetByID(context.Background(), f.analamanga.ID)
	if err != nil {
		t.Fatalf("Failed to get region: %v", err)
	}
	if region.CityCount != 1 {
		t.Errorf("Expected 1 city in region, got %d", region.CityCount)
	}
}

func TestCatalog_ListFiltersSearchSort(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()
	mustCreate(t, f.repos.Establishments, &domain.Establishment{Name: "Université de Toamasina", CityID: f.toamasina.ID})
	mustCreate(t, f.repos.Establishments, &domain.Establishment{Name: "ISPM", Acronym: "ISPM", CityID: f.tana.ID})

	tests := []struct {
		name  string
		query domain.ListQuery
		want  []string
		total int
	}{
		{"default sort by name", domain.ListQuery{}, []string{"ISPM", "Université d'Antananarivo", "Université de Toamasina"}, 3},
		{"descending", domain.ListQuery{Sort: "-name"}, []string{"Université de Toamasina", "Université d'Antananarivo", "ISPM"}, 3},
		{"region filter", domain.ListQuery{Filters: map[string]int64{"region_id": f.atsinanana.ID}}, []string{"Université de Toamasina"}, 1},
		{"city filter", domain.ListQuery{Filters: map[string]int64{"city_id": f.tana.ID}}, []string{"ISPM", "Université d'Antananarivo"}, 2},
		{"search is case insensitive", domain.ListQuery{Q: "UNIVERSITÉ"}, []string{"Université d'Antananarivo", "Université de Toamasina"}, 2},
		{"search by acronym", domain.ListQuery{Q: "ua"}, []string{"Université d'Antananarivo"}, 1},
		{"pagination", domain.ListQuery{Page: domain.Page{Number: 2, PerPage: 2}}, []string{"Université de Toamasina"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := f.repos.Establishments.List(ctx, tt.query)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, total)
			}
			var names []string
			for _, e := range items {
				names = append(names, e.Name)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, names)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, names)
					break
				}
			}
		})
	}
}

func TestCatalog_SearchFoldsAccentsAndKeepsWildcardsLiteral(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()
	mustCreate(t, f.repos.Establishments, &domain.Establishment{Name: "École 100% Digitale", Acronym: "E_D", CityID: f.tana.ID})

	tests := []struct {
		name string
		q    string
		want []string
	}{
		{"unaccented term", "ecole", []string{"École 100% Digitale"}},
		{"accented uppercase term", "ÉCOLE", []string{"École 100% Digitale"}},
		{"percent is literal", "100%", []string{"École 100% Digitale"}},
		{"underscore is literal", "_", []string{"École 100% Digitale"}},
		{"escape character is literal", "!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := f.repos.Establishments.List(ctx, domain.ListQuery{Q: tt.q})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			var names []string
			for _, e := range items {
				names = append(names, e.Name)
			}
			if total != len(tt.want) || len(names) != len(tt.want) {
				t.Fatalf("Expected %v, got %v (total %d)", tt.want, names, total)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, names)
					break
				}
			}
		})
	}
}

func TestCatalog_ListRejectsUnknownSortAndFilter(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	if _, _, err := f.repos.Cities.List(ctx, domain.ListQuery{Sort: "password"}); !errors.Is(err, ErrInvalidSort) {
		t.Errorf("Expected ErrInvalidSort, got %v", err)
	}
	if _, _, err := f.repos.Cities.List(ctx, domain.ListQuery{Filters: map[string]int64{"sector_id": 1}}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
}

func TestCatalog_UpdateAndDelete(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	patch := *f.toamasina
	patch.Name = "Tamatave"
	updated, err := f.repos.Cities.Update(ctx, f.toamasina.ID, &patch)
	if err != nil {
		t.Fatalf("Failed to update city: %v", err)
	}
	if updated.Name != "Tamatave" {
		t.Errorf("Expected updated name, got '%s'", updated.Name)
	}

	if _, err := f.repos.Cities.Update(ctx, 999, &patch); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord on unknown id, got %v", err)
	}

	// Referenced rows cannot be deleted / Les lignes référencées ne peuvent pas être supprimées
	if err := f.repos.Cities.Delete(ctx, f.tana.ID); !errors.Is(err, ErrForeignKeyViolation) {
		t.Errorf("Expected ErrForeignKeyViolation deleting a used city, got %v", err)
	}
	if err := f.repos.Cities.Delete(ctx, f.toamasina.ID); err != nil {
		t.Fatalf("Failed to delete unused city: %v", err)
	}
	if _, err := f.repos.Cities.GetByID(ctx, f.toamasina.ID); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord after delete, got %v", err)
	}
	if err := f.repos.Cities.Delete(ctx, f.toamasina.ID); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord on second delete, got %v", err)
	}
}

func TestCatalog_Constraints(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	if _, err := f.repos.Cities.Create(ctx, &domain.City{Name: "Antananarivo", RegionID: f.analamanga.ID}); !errors.Is(err, ErrDup) {
		t.Errorf("Expected ErrDup for duplicate city in region, got %v", err)
	}
	if _, err := f.repos.Cities.Create(ctx, &domain.City{Name: "Nowhere", RegionID: 999}); !errors.Is(err, ErrForeignKeyViolation) {
		t.Errorf("Expected ErrForeignKeyViolation for unknown region, got %v", err)
	}
}

func TestCatalog_FormationChildren(t *testing.T) {
	f, _ := newCatalogFixture(t)
	ctx := context.Background()

	fee := int64(450000)
	formation := mustCreate(t, f.repos.Formations, &domain.Formation{
		Name:            "Licence en Informatique",
		DurationMonths:  36,
		TuitionFee:      &fee,
		EstablishmentID: f.ua.ID,
		MentionID:       &f.info.ID,
		LevelID:         &f.licence.ID,
	})
	if formation.Mention == nil || formation.Mention.Domain == nil || formation.Mention.Domain.ID != f.science.ID {
		t.Errorf("Expected mention and domain on formation, got %+v", formation.Mention)
	}
	if formation.Level == nil || formation.Level.Rank != 3 {
		t.Errorf("Expected level on formation, got %+v", formation.Level)
	}

	items, total, err := f.repos.Formations.List(ctx, domain.ListQuery{Filters: map[string]int64{"domain_id": f.science.ID}})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("Expected one formation in domain, got %d (%v)", total, err)
	}

	mustCreate(t, f.repos.Authorizations, &domain.FormationAuthorization{
		FormationID: formation.ID, Reference: "ARR-2024-001", Status: domain.AuthorizationGranted,
	})
	mustCreate(t, f.repos.Headcounts, &domain.AnnualHeadcount{
		FormationID: formation.ID, AcademicYear: "2023-2024", StudentCount: 120, FemaleCount: 55,
	})
	if _, err := f.repos.Headcounts.Create(ctx, &domain.AnnualHeadcount{FormationID: formation.ID, AcademicYear: "2023-2024"}); !errors.Is(err, ErrDup) {
		t.Errorf("Expected ErrDup for a second headcount of the same year, got %v", err)
	}

	// Children follow their formation / Les enfants suivent leur formation
	if err := f.repos.Formations.Delete(ctx, formation.ID); err != nil {
		t.Fatalf("Failed to delete formation: %v", err)
	}
	_, total, _ = f.repos.Authorizations.List(ctx, domain.ListQuery{})
	if total != 0 {
		t.Errorf("Expected authorizations to cascade, got %d", total)
	}
	_, total, _ = f.repos.Headcounts.List(ctx, domain.ListQuery{})
	if total != 0 {
		t.Errorf("Expected headcounts to cascade, got %d", total)
	}
}

func TestReviewsAndStats(t *testing.T) {
	f, adapter := newCatalogFixture(t)
	ctx := context.Background()
	users := adapter.UserRepository()
	reviews := adapter.ReviewRepository()
	stats := adapter.StatsRepository()

	alice := createUser(t, users, "alice@example.com")
	bob := createUser(t, users, "bob@example.com")

	r1, err := reviews.Create(ctx, &domain.Review{EstablishmentID: f.ua.ID, UserID: alice.ID, Rating: 5, Comment: "Très bien"})
	if err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	if r1.AuthorName != "Hery" {
		t.Errorf("Expected author name from user, got '%s'", r1.AuthorName)
	}
	if _, err := reviews.Create(ctx, &domain.Review{EstablishmentID: f.ua.ID, UserID: alice.ID, Rating: 1}); !errors.Is(err, ErrDup) {
		t.Errorf("Expected ErrDup for a second review by the same user, got %v", err)
	}
	reviews.Create(ctx, &domain.Review{EstablishmentID: f.ua.ID, UserID: bob.ID, Rating: 4})

	list, total, err := reviews.ListByEstablishment(ctx, f.ua.ID, domain.Page{Number: 1, PerPage: 10})
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("Expected 2 reviews, got %d (%v)", total, err)
	}

	est, _ := f.repos.Establishments.GetByID(ctx, f.ua.ID)
	if est.ReviewCount != 2 || est.RatingAverage != 4.5 {
		t.Errorf("Expected 2 reviews averaging 4.5, got %d / %v", est.ReviewCount, est.RatingAverage)
	}

	if err := reviews.Delete(ctx, r1.ID); err != nil {
		t.Fatalf("Failed to delete review: %v", err)
	}
	if _, err := reviews.GetByID(ctx, r1.ID); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord after delete, got %v", err)
	}

	n, err := stats.Count(ctx, "establishments")
	if err != nil || n != 1 {
		t.Errorf("Expected 1 establishment, got %d (%v)", n, err)
	}
	if _, err := stats.Count(ctx, "users"); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter for an unlisted table, got %v", err)
	}

	perRegion, err := stats.CountGrouped(ctx, "establishments_per_region")
	if err != nil {
		t.Fatalf("Failed to group per region: %v", err)
	}
	want := map[string]int{"Analamanga": 1, "Atsinanana": 0}
	if len(perRegion) != len(want) {
		t.Fatalf("Expected %d buckets, got %v", len(want), perRegion)
	}
	for _, b := range perRegion {
		if want[b.Label] != b.Count {
			t.Errorf("Bucket %s: expected %d, got %d", b.Label, want[b.Label], b.Count)
		}
	}

	names, err := adapter.NameIndex().SearchableNames(ctx)
	if err != nil {
		t.Fatalf("Failed to list names: %v", err)
	}
	found := map[string]bool{}
	for _, ref := range names {
		found[ref.Kind+":"+ref.Name] = true
	}
	for _, key := range []string{"domain:Sciences et Technologies", "mention:Informatique", "establishment:UA"} {
		if !found[key] {
			t.Errorf("Expected %s in searchable names", key)
		}
	}
}
