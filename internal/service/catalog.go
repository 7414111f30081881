package service

import (
	"context"
	"errors"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
)

// Entity is implemented by pointers to catalog records / Implémenté par les pointeurs d'enregistrements
type Entity[T any] interface {
	*T
	Validate() error
	AuditInfo() *domain.Audit
}

// CatalogMetricsRecorder records catalog metrics / Enregistre les métriques du catalogue
type CatalogMetricsRecorder interface {
	RecordCacheLookup(entity string, hit bool)
	RecordAdminMutation(entity, action string)
}

type purger interface {
	Purge()
}

type listResult[T any] struct {
	items []T
	total int
}

// Catalog is the CRUD use-case shared by every reference entity / Cas d'usage CRUD commun aux référentiels
type Catalog[T any, P Entity[T]] struct {
	name       string
	repo       ports.CatalogRepository[T]
	pagination config.PaginationConfig
	metrics    CatalogMetricsRecorder

	lists   *expirable.LRU[string, listResult[T]]
	items   *expirable.LRU[int64, T]
	enrich  func(ctx context.Context, item *T) error
	cascade []purger
}

// NewCatalog creates a catalog use-case; cached enables the LRU / Crée un cas d'usage de catalogue
func NewCatalog[T any, P Entity[T]](name string, repo ports.CatalogRepository[T], conf *config.Config, metrics CatalogMetricsRecorder, cached bool) *Catalog[T, P] {
	c := &Catalog[T, P]{
		name:       name,
		repo:       repo,
		pagination: conf.Pagination,
		metrics:    metrics,
	}
	if cached && conf.Cache.Enabled && conf.Cache.Size > 0 {
		c.lists = expirable.NewLRU[string, listResult[T]](conf.Cache.Size, nil, conf.Cache.TTL)
		c.items = expirable.NewLRU[int64, T](conf.Cache.Size, nil, conf.Cache.TTL)
	}
	return c
}

// Name returns the entity label used in errors and metrics / Libellé de l'entité
func (c *Catalog[T, P]) Name() string { return c.name }

// WithEnrich sets a hook run on Get results before caching / Définit un enrichissement appliqué à Get
func (c *Catalog[T, P]) WithEnrich(fn func(ctx context.Context, item *T) error) *Catalog[T, P] {
	c.enrich = fn
	return c
}

// Invalidates makes writes here also purge the given catalogs / Les écritures purgent aussi ces catalogues
func (c *Catalog[T, P]) Invalidates(others ...purger) *Catalog[T, P] {
	c.cascade = append(c.cascade, others...)
	return c
}

// Purge empties the cache / Vide le cache
func (c *Catalog[T, P]) Purge() {
	if c.lists == nil {
		return
	}
	c.lists.Purge()
	c.items.Purge()
}

func (c *Catalog[T, P]) invalidate(action string) {
	c.Purge()
	for _, other := range c.cascade {
		other.Purge()
	}
	if c.metrics != nil {
		c.metrics.RecordAdminMutation(c.name, action)
	}
}

func (c *Catalog[T, P]) recordLookup(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(c.name, hit)
	}
}

// List returns one page of entities / Retourne une page d'entités
func (c *Catalog[T, P]) List(ctx context.Context, q domain.ListQuery) ([]T, domain.PageMeta, error) {
	q.Page = q.Page.Normalize(c.pagination.DefaultPerPage, c.pagination.MaxPerPage)

	key := q.CacheKey()
	if c.lists != nil {
		if res, ok := c.lists.Get(key); ok {
			c.recordLookup(true)
			return res.items, domain.NewPageMeta(q.Page, res.total), nil
		}
		c.recordLookup(false)
	}

	items, total, err := c.repo.List(ctx, q)
	if err != nil {
		return nil, domain.PageMeta{}, apperr.FromRepository(err, c.name, apperr.OpRead)
	}
	if items == nil {
		items = []T{}
	}

	if c.lists != nil {
		c.lists.Add(key, listResult[T]{items: items, total: total})
	}
	return items, domain.NewPageMeta(q.Page, total), nil
}

// Get returns one entity with its relations / Retourne une entité avec ses relations
func (c *Catalog[T, P]) Get(ctx context.Context, id int64) (*T, error) {
	if id <= 0 {
		return nil, apperr.NotFound("not_found", c.name+" not found")
	}
	if c.items != nil {
		if item, ok := c.items.Get(id); ok {
			c.recordLookup(true)
			return &item, nil
		}
		c.recordLookup(false)
	}

	item, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromRepository(err, c.name, apperr.OpRead)
	}
	if c.enrich != nil {
		if err := c.enrich(ctx, item); err != nil {
			return nil, apperr.FromRepository(err, c.name, apperr.OpRead)
		}
	}

	if c.items != nil {
		c.items.Add(id, *item)
	}
	return item, nil
}

// Create validates, stamps and inserts / Valide, horodate et insère
func (c *Catalog[T, P]) Create(ctx context.Context, actorID int64, entity *T) (*T, error) {
	if err := validate[T, P](entity); err != nil {
		return nil, err
	}
	P(entity).AuditInfo().Stamp(actorID, true)

	created, err := c.repo.Create(ctx, entity)
	if err != nil {
		return nil, apperr.FromRepository(err, c.name, apperr.OpWrite)
	}
	c.invalidate("create")
	return created, nil
}

// Update replaces a row; 404 when missing / Remplace une ligne, 404 si absente
func (c *Catalog[T, P]) Update(ctx context.Context, actorID, id int64, entity *T) (*T, error) {
	if err := validate[T, P](entity); err != nil {
		return nil, err
	}
	P(entity).AuditInfo().Stamp(actorID, false)

	updated, err := c.repo.Update(ctx, id, entity)
	if err != nil {
		return nil, apperr.FromRepository(err, c.name, apperr.OpWrite)
	}
	c.invalidate("update")
	return updated, nil
}

// Delete removes a row; 409 while still referenced / Supprime une ligne, 409 si encore référencée
func (c *Catalog[T, P]) Delete(ctx context.Context, id int64) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return apperr.FromRepository(err, c.name, apperr.OpDelete)
	}
	c.invalidate("delete")
	return nil
}

func validate[T any, P Entity[T]](entity *T) error {
	if entity == nil {
		return apperr.BadRequest("invalid_body", "request body is required")
	}
	if err := P(entity).Validate(); err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			return apperr.Validation(verrs)
		}
		return apperr.BadRequest("invalid_body", err.Error())
	}
	return nil
}

// Catalogs bundles one use-case per reference entity / Un cas d'usage par référentiel
type Catalogs struct {
	Regions            *Catalog[domain.Region, *domain.Region]
	Cities             *Catalog[domain.City, *domain.City]
	Domains            *Catalog[domain.Domain, *domain.Domain]
	Mentions           *Catalog[domain.Mention, *domain.Mention]
	Levels             *Catalog[domain.Level, *domain.Level]
	Sectors            *Catalog[domain.Sector, *domain.Sector]
	EstablishmentTypes *Catalog[domain.EstablishmentType, *domain.EstablishmentType]
	Establishments     *Catalog[domain.Establishment, *domain.Establishment]
	Formations         *Catalog[domain.Formation, *domain.Formation]
	Authorizations     *Catalog[domain.FormationAuthorization, *domain.FormationAuthorization]
	Headcounts         *Catalog[domain.AnnualHeadcount, *domain.AnnualHeadcount]
}

// NewCatalogs wires the catalog use-cases; small reference tables are cached / Câble les catalogues
func NewCatalogs(repos ports.CatalogRepositories, conf *config.Config, metrics CatalogMetricsRecorder) *Catalogs {
	c := &Catalogs{
		Regions:            NewCatalog[domain.Region]("region", repos.Regions, conf, metrics, true),
		Cities:             NewCatalog[domain.City]("city", repos.Cities, conf, metrics, true),
		Domains:            NewCatalog[domain.Domain]("domain", repos.Domains, conf, metrics, true),
		Mentions:           NewCatalog[domain.Mention]("mention", repos.Mentions, conf, metrics, true),
		Levels:             NewCatalog[domain.Level]("level", repos.Levels, conf, metrics, true),
		Sectors:            NewCatalog[domain.Sector]("sector", repos.Sectors, conf, metrics, true),
		EstablishmentTypes: NewCatalog[domain.EstablishmentType]("establishment type", repos.EstablishmentTypes, conf, metrics, true),
		Establishments:     NewCatalog[domain.Establishment]("establishment", repos.Establishments, conf, metrics, false),
		Formations:         NewCatalog[domain.Formation]("formation", repos.Formations, conf, metrics, false),
		Authorizations:     NewCatalog[domain.FormationAuthorization]("formation authorization", repos.Authorizations, conf, metrics, false),
		Headcounts:         NewCatalog[domain.AnnualHeadcount]("annual headcount", repos.Headcounts, conf, metrics, false),
	}

	// Nested relations are copied into cached rows
	c.Regions.Invalidates(c.Cities)
	c.Domains.Invalidates(c.Mentions)
	c.Mentions.Invalidates(c.Domains)

	mentions := repos.Mentions
	c.Domains.WithEnrich(func(ctx context.Context, d *domain.Domain) error {
		q := domain.ListQuery{Page: domain.Page{Number: 1, PerPage: domain.MaxPerPage}}.WithFilter("domain_id", d.ID)
		items, _, err := mentions.List(ctx, q)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].Domain = nil
		}
		d.Mentions = items
		return nil
	})

	return c
}
