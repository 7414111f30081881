package repository

import (
	"database/sql"
	"strings"

	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository/mysql"
	"github.com/orientamada/orientamada/internal/repository/postgres"
	"github.com/orientamada/orientamada/internal/repository/sqlite"
)

// Compile-time checks: a Factory missing a method will not compile
// Vérifications à la compilation : une Factory incomplète ne compile pas
var (
	_ DatabaseFactory = (*sqlite.Factory)(nil)
	_ DatabaseFactory = (*mysql.Factory)(nil)
	_ DatabaseFactory = (*postgres.Factory)(nil)
)

// factoryRegistry holds all database factories / Registre de toutes les factories de BD
var factoryRegistry = map[string]DatabaseFactory{
	"sqlite":     sqlite.NewFactory(),
	"sqlite3":    sqlite.NewFactory(),
	"mysql":      mysql.NewFactory(),
	"postgres":   postgres.NewFactory(),
	"postgresql": postgres.NewFactory(),
}

// Adapter adapts database connection to repositories / Adapte la connexion BD vers les repositories
type Adapter struct {
	db      *sql.DB
	factory DatabaseFactory
}

// NewAdapter creates repository adapter / Crée l'adapteur de repositories
func NewAdapter(db *sql.DB, driver string) *Adapter {
	factory := factoryRegistry[strings.ToLower(driver)]
	if factory == nil {
		factory = sqlite.NewFactory()
	}

	return &Adapter{
		db:      db,
		factory: factory,
	}
}

// UserRepository returns appropriate user repository / Retourne le repository utilisateur approprié
func (a *Adapter) UserRepository() ports.UserRepository {
	return a.factory.NewUserRepository(a.db)
}

// RefreshTokenStore returns appropriate refresh token store / Retourne le store de refresh tokens approprié
func (a *Adapter) RefreshTokenStore() ports.RefreshTokenStore {
	return a.factory.NewRefreshTokenStore(a.db)
}

func (a *Adapter) OTPRepository() ports.OTPRepository {
	return a.factory.NewOTPRepository(a.db)
}

// CatalogRepositories returns the reference data repositories / Retourne les repositories des référentiels
func (a *Adapter) CatalogRepositories() ports.CatalogRepositories {
	return a.factory.NewCatalogRepositories(a.db)
}

func (a *Adapter) ReviewRepository() ports.ReviewRepository {
	return a.factory.NewReviewRepository(a.db)
}

func (a *Adapter) StatsRepository() ports.StatsRepository {
	return a.factory.NewStatsRepository(a.db)
}

func (a *Adapter) NameIndex() ports.NameIndex {
	return a.factory.NewNameIndex(a.db)
}
