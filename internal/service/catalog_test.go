package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRegions() *mocks.MockCatalogRepository[domain.Region] {
	return mocks.NewMockCatalogRepository(func(r *domain.Region, id int64) { r.ID = id })
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T: %v", err, err)
	return appErr.Status
}

func TestCatalog_ListIsCachedUntilWrite(t *testing.T) {
	repo := newMockRegions()
	metrics := mocks.NewMockMetrics()
	regions := NewCatalog[domain.Region]("region", repo, testConfig(), metrics, true)
	ctx := context.Background()

	_, err := regions.Create(ctx, 0, &domain.Region{Name: "Analamanga"})
	require.NoError(t, err)

	q := domain.ListQuery{Page: domain.Page{Number: 1, PerPage: 10}}
	first, meta, err := regions.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, meta.Total)

	_, _, err = regions.List(ctx, q)
	require.NoError(t, err)
	list, _ := repo.Calls()
	assert.Equal(t, 1, list, "second list should be served from cache")
	assert.Equal(t, 1, metrics.CacheHits["region"])

	_, err = regions.Create(ctx, 0, &domain.Region{Name: "Vakinankaratra"})
	require.NoError(t, err)

	items, meta, err := regions.List(ctx, q)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, meta.Total)
	list, _ = repo.Calls()
	assert.Equal(t, 2, list, "write should purge the cache")
	assert.Equal(t, 2, metrics.AdminMutations["region:create"])
}

func TestCatalog_GetIsCached(t *testing.T) {
	repo := newMockRegions()
	regions := NewCatalog[domain.Region]("region", repo, testConfig(), nil, true)
	ctx := context.Background()

	created, err := regions.Create(ctx, 0, &domain.Region{Name: "Boeny"})
	require.NoError(t, err)

	for range 3 {
		got, err := regions.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Boeny", got.Name)
	}
	_, get := repo.Calls()
	assert.Equal(t, 1, get)

	_, err = regions.Update(ctx, 0, created.ID, &domain.Region{Name: "Boeny Nord"})
	require.NoError(t, err)
	got, err := regions.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boeny Nord", got.Name)
}

func TestCatalog_UncachedAlwaysHitsStore(t *testing.T) {
	repo := newMockRegions()
	regions := NewCatalog[domain.Region]("region", repo, testConfig(), nil, false)
	q := domain.ListQuery{}

	for range 3 {
		_, _, err := regions.List(context.Background(), q)
		require.NoError(t, err)
	}
	list, _ := repo.Calls()
	assert.Equal(t, 3, list)
}

func TestCatalog_CascadeInvalidation(t *testing.T) {
	regionRepo := newMockRegions()
	cityRepo := mocks.NewMockCatalogRepository(func(c *domain.City, id int64) { c.ID = id })
	conf := testConfig()
	regions := NewCatalog[domain.Region]("region", regionRepo, conf, nil, true)
	cities := NewCatalog[domain.City]("city", cityRepo, conf, nil, true)
	regions.Invalidates(cities)
	ctx := context.Background()

	_, _, err := cities.List(ctx, domain.ListQuery{})
	require.NoError(t, err)
	_, err = regions.Create(ctx, 0, &domain.Region{Name: "Atsinanana"})
	require.NoError(t, err)
	_, _, err = cities.List(ctx, domain.ListQuery{})
	require.NoError(t, err)

	list, _ := cityRepo.Calls()
	assert.Equal(t, 2, list, "region writes must purge cities")
}

func TestCatalog_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		regions := NewCatalog[domain.Region]("region", newMockRegions(), testConfig(), nil, true)
		_, err := regions.Create(ctx, 0, &domain.Region{Name: "  "})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "required", appErr.Details["name"])
	})

	t.Run("nil body", func(t *testing.T) {
		regions := NewCatalog[domain.Region]("region", newMockRegions(), testConfig(), nil, true)
		_, err := regions.Create(ctx, 0, nil)
		assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	})

	t.Run("missing row", func(t *testing.T) {
		regions := NewCatalog[domain.Region]("region", newMockRegions(), testConfig(), nil, true)
		_, err := regions.Get(ctx, 42)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
		_, err = regions.Get(ctx, -1)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
		_, err = regions.Update(ctx, 0, 42, &domain.Region{Name: "X"})
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
		err = regions.Delete(ctx, 42)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})

	t.Run("store failure", func(t *testing.T) {
		repo := newMockRegions()
		repo.ListError = errors.New("disk on fire")
		regions := NewCatalog[domain.Region]("region", repo, testConfig(), nil, true)
		_, _, err := regions.List(ctx, domain.ListQuery{})
		assert.Equal(t, http.StatusInternalServerError, statusOf(t, err))
	})
}

func TestCatalog_PageIsClamped(t *testing.T) {
	regions := NewCatalog[domain.Region]("region", newMockRegions(), testConfig(), nil, false)
	_, meta, err := regions.List(context.Background(), domain.ListQuery{Page: domain.Page{Number: 0, PerPage: 1000}})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 100, meta.PerPage)
}

func TestCatalogs_ReferentialIntegrity(t *testing.T) {
	env := newSQLiteEnv(t)
	admin := env.createUser(t, "admin@univ.mg", true)
	catalogs := NewCatalogs(env.adapter.CatalogRepositories(), testConfig(), nil)
	ctx := context.Background()

	t.Run("city with unknown region", func(t *testing.T) {
		_, err := catalogs.Cities.Create(ctx, admin.ID, &domain.City{Name: "Antsirabe", RegionID: 999})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	})

	t.Run("referenced domain", func(t *testing.T) {
		d, err := catalogs.Domains.Create(ctx, admin.ID, &domain.Domain{Name: "Sciences et Technologies"})
		require.NoError(t, err)
		require.NotNil(t, d.CreatedBy)
		assert.Equal(t, admin.ID, *d.CreatedBy)

		_, err = catalogs.Mentions.Create(ctx, admin.ID, &domain.Mention{Name: "Informatique", DomainID: d.ID})
		require.NoError(t, err)

		err = catalogs.Domains.Delete(ctx, d.ID)
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})

	t.Run("domain detail lists its mentions", func(t *testing.T) {
		d, err := catalogs.Domains.Create(ctx, admin.ID, &domain.Domain{Name: "Droit"})
		require.NoError(t, err)
		_, err = catalogs.Mentions.Create(ctx, admin.ID, &domain.Mention{Name: "Droit public", DomainID: d.ID})
		require.NoError(t, err)
		_, err = catalogs.Mentions.Create(ctx, admin.ID, &domain.Mention{Name: "Droit privé", DomainID: d.ID})
		require.NoError(t, err)

		got, err := catalogs.Domains.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Len(t, got.Mentions, 2)
		for _, m := range got.Mentions {
			assert.Nil(t, m.Domain)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := catalogs.Sectors.Create(ctx, admin.ID, &domain.Sector{Name: "Public"})
		require.NoError(t, err)
		_, err = catalogs.Sectors.Create(ctx, admin.ID, &domain.Sector{Name: "Public"})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
	})
}
