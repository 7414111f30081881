package ports

import (
	"context"

	"github.com/orientamada/orientamada/internal/domain"
)

// CatalogRepository is the CRUD contract shared by every reference entity / Contrat CRUD commun aux référentiels
type CatalogRepository[T any] interface {
	List(ctx context.Context, q domain.ListQuery) ([]T, int, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, id int64, entity *T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogRepositories bundles the reference repositories / Regroupe les repositories de référentiels
type CatalogRepositories struct {
	Regions            CatalogRepository[domain.Region]
	Cities             CatalogRepository[domain.City]
	Domains            CatalogRepository[domain.Domain]
	Mentions           CatalogRepository[domain.Mention]
	Levels             CatalogRepository[domain.Level]
	Sectors            CatalogRepository[domain.Sector]
	EstablishmentTypes CatalogRepository[domain.EstablishmentType]
	Establishments     CatalogRepository[domain.Establishment]
	Formations         CatalogRepository[domain.Formation]
	Authorizations     CatalogRepository[domain.FormationAuthorization]
	Headcounts         CatalogRepository[domain.AnnualHeadcount]
}

// ReviewRepository stores establishment reviews / Stocke les avis
type ReviewRepository interface {
	ListByEstablishment(ctx context.Context, establishmentID int64, page domain.Page) ([]domain.Review, int, error)
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	Create(ctx context.Context, review *domain.Review) (*domain.Review, error)
	Delete(ctx context.Context, id int64) error
}

// StatsRepository answers aggregate counts / Fournit les comptages agrégés
type StatsRepository interface {
	// Count counts rows of a known table / Compte les lignes d'une table connue
	Count(ctx context.Context, table string) (int, error)
	// CountGrouped counts rows per label for a known grouping / Compte par libellé
	CountGrouped(ctx context.Context, grouping string) ([]domain.StatBucket, error)
}

// NameIndex lists names the chatbot can suggest / Liste les noms suggérables par le chatbot
type NameIndex interface {
	SearchableNames(ctx context.Context) ([]domain.NamedRef, error)
}
