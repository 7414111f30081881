package sqlstore

import (
	"database/sql"

	"github.com/orientamada/orientamada/internal/ports"
)

// Factory builds every repository for one dialect / Construit tous les repositories d'un dialecte
// Dialect packages embed it so the DatabaseFactory contract is checked at compile time.
type Factory struct {
	Dialect Dialect
}

func (f *Factory) conn(db *sql.DB) conn {
	return conn{db: db, d: f.Dialect}
}

func (f *Factory) NewUserRepository(db *sql.DB) ports.UserRepository {
	return &userRepository{c: f.conn(db)}
}

func (f *Factory) NewRefreshTokenStore(db *sql.DB) ports.RefreshTokenStore {
	return &refreshTokenStore{c: f.conn(db)}
}

func (f *Factory) NewOTPRepository(db *sql.DB) ports.OTPRepository {
	return &otpRepository{c: f.conn(db)}
}

func (f *Factory) NewReviewRepository(db *sql.DB) ports.ReviewRepository {
	return &reviewRepository{c: f.conn(db)}
}

func (f *Factory) NewStatsRepository(db *sql.DB) ports.StatsRepository {
	return &statsRepository{c: f.conn(db)}
}

func (f *Factory) NewNameIndex(db *sql.DB) ports.NameIndex {
	return &statsRepository{c: f.conn(db)}
}

// NewCatalogRepositories wires one generic repository per reference table / Un repository générique par table
func (f *Factory) NewCatalogRepositories(db *sql.DB) ports.CatalogRepositories {
	c := f.conn(db)
	return ports.CatalogRepositories{
		Regions:            newCatalogRepository(c, regionTable),
		Cities:             newCatalogRepository(c, cityTable),
		Domains:            newCatalogRepository(c, domainTable),
		Mentions:           newCatalogRepository(c, mentionTable),
		Levels:             newCatalogRepository(c, levelTable),
		Sectors:            newCatalogRepository(c, sectorTable),
		EstablishmentTypes: newCatalogRepository(c, establishmentTypeTable),
		Establishments:     newCatalogRepository(c, establishmentTable),
		Formations:         newCatalogRepository(c, formationTable),
		Authorizations:     newCatalogRepository(c, authorizationTable),
		Headcounts:         newCatalogRepository(c, headcountTable),
	}
}
