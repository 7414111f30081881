// Package seed loads reference data from a YAML file into the catalog.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/service"
	"gopkg.in/yaml.v3"
)

// File is the reference data document / Document de données de référence
type File struct {
	Regions            []Region        `yaml:"regions"`
	Domains            []Domain        `yaml:"domains"`
	Levels             []Level         `yaml:"levels"`
	Sectors            []string        `yaml:"sectors"`
	EstablishmentTypes []string        `yaml:"establishment_types"`
	Establishments     []Establishment `yaml:"establishments"`
}

type Region struct {
	Name   string `yaml:"name"`
	Code   string `yaml:"code"`
	Cities []City `yaml:"cities"`
}

type City struct {
	Name       string `yaml:"name"`
	PostalCode string `yaml:"postal_code"`
}

type Domain struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Mentions    []string `yaml:"mentions"`
}

type Level struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Rank int    `yaml:"rank"`
}

// Establishment refers to its city, type and sector by name / Référence ville, type et secteur par nom
type Establishment struct {
	Name       string      `yaml:"name"`
	Acronym    string      `yaml:"acronym"`
	City       string      `yaml:"city"`
	Type       string      `yaml:"type"`
	Sector     string      `yaml:"sector"`
	Address    string      `yaml:"address"`
	Phone      string      `yaml:"phone"`
	Email      string      `yaml:"email"`
	Website    string      `yaml:"website"`
	Formations []Formation `yaml:"formations"`
}

type Formation struct {
	Name           string `yaml:"name"`
	Mention        string `yaml:"mention"`
	Level          string `yaml:"level"`
	DurationMonths int    `yaml:"duration_months"`
	Diploma        string `yaml:"diploma"`
	TuitionFee     *int64 `yaml:"tuition_fee"`
}

// Report counts rows per entity / Compte les lignes par entité
type Report struct {
	Created  map[string]int
	Existing map[string]int
}

func (r *Report) add(entity string, created bool) {
	if created {
		r.Created[entity]++
	} else {
		r.Existing[entity]++
	}
}

// Load reads and parses a seed file / Lit et analyse un fichier de seed
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document; unknown keys are rejected / Décode un document, clés inconnues refusées
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Seeder writes a File through the catalog use-cases / Écrit un File via les catalogues
type Seeder struct {
	cats *service.Catalogs

	cities   map[string]int64
	mentions map[string]int64
	levels   map[string]int64
	sectors  map[string]int64
	types    map[string]int64
}

func NewSeeder(cats *service.Catalogs) *Seeder {
	return &Seeder{
		cats:     cats,
		cities:   map[string]int64{},
		mentions: map[string]int64{},
		levels:   map[string]int64{},
		sectors:  map[string]int64{},
		types:    map[string]int64{},
	}
}

// Apply inserts missing rows and reuses the ones already present, so it can run again safely.
// Insère les lignes manquantes et réutilise les existantes.
func (s *Seeder) Apply(ctx context.Context, f *File) (Report, error) {
	rep := Report{Created: map[string]int{}, Existing: map[string]int{}}

	for _, r := range f.Regions {
		regionID, err := ensure(ctx, s.cats.Regions, r.Name, nil, &rep,
			func(e *domain.Region) (string, int64) { return e.Name, e.ID },
			func() *domain.Region { return &domain.Region{Name: r.Name, Code: r.Code} })
		if err != nil {
			return rep, err
		}
		for _, c := range r.Cities {
			id, err := ensure(ctx, s.cats.Cities, c.Name, map[string]int64{"region_id": regionID}, &rep,
				func(e *domain.City) (string, int64) { return e.Name, e.ID },
				func() *domain.City { return &domain.City{Name: c.Name, PostalCode: c.PostalCode, RegionID: regionID} })
			if err != nil {
				return rep, err
			}
			s.cities[key(c.Name)] = id
		}
	}

	for _, d := range f.Domains {
		domainID, err := ensure(ctx, s.cats.Domains, d.Name, nil, &rep,
			func(e *domain.Domain) (string, int64) { return e.Name, e.ID },
			func() *domain.Domain { return &domain.Domain{Name: d.Name, Description: d.Description} })
		if err != nil {
			return rep, err
		}
		for _, m := range d.Mentions {
			id, err := ensure(ctx, s.cats.Mentions, m, map[string]int64{"domain_id": domainID}, &rep,
				func(e *domain.Mention) (string, int64) { return e.Name, e.ID },
				func() *domain.Mention { return &domain.Mention{Name: m, DomainID: domainID} })
			if err != nil {
				return rep, err
			}
			s.mentions[key(m)] = id
		}
	}

	for _, l := range f.Levels {
		id, err := ensure(ctx, s.cats.Levels, l.Code, nil, &rep,
			func(e *domain.Level) (string, int64) { return e.Code, e.ID },
			func() *domain.Level { return &domain.Level{Code: l.Code, Name: l.Name, Rank: l.Rank} })
		if err != nil {
			return rep, err
		}
		s.levels[key(l.Code)] = id
	}

	for _, name := range f.Sectors {
		id, err := ensure(ctx, s.cats.Sectors, name, nil, &rep,
			func(e *domain.Sector) (string, int64) { return e.Name, e.ID },
			func() *domain.Sector { return &domain.Sector{Name: name} })
		if err != nil {
			return rep, err
		}
		s.sectors[key(name)] = id
	}

	for _, name := range f.EstablishmentTypes {
		id, err := ensure(ctx, s.cats.EstablishmentTypes, name, nil, &rep,
			func(e *domain.EstablishmentType) (string, int64) { return e.Name, e.ID },
			func() *domain.EstablishmentType { return &domain.EstablishmentType{Name: name} })
		if err != nil {
			return rep, err
		}
		s.types[key(name)] = id
	}

	for _, e := range f.Establishments {
		if err := s.establishment(ctx, e, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (s *Seeder) establishment(ctx context.Context, e Establishment, rep *Report) error {
	cityID, ok := s.cities[key(e.City)]
	if !ok {
		return fmt.Errorf("establishment %q: unknown city %q", e.Name, e.City)
	}
	typeID, err := optionalRef(s.types, e.Type, "type")
	if err != nil {
		return fmt.Errorf("establishment %q: %w", e.Name, err)
	}
	sectorID, err := optionalRef(s.sectors, e.Sector, "sector")
	if err != nil {
		return fmt.Errorf("establishment %q: %w", e.Name, err)
	}

	estID, err := ensure(ctx, s.cats.Establishments, e.Name, map[string]int64{"city_id": cityID}, rep,
		func(x *domain.Establishment) (string, int64) { return x.Name, x.ID },
		func() *domain.Establishment {
			return &domain.Establishment{
				Name:     e.Name,
				Acronym:  e.Acronym,
				Address:  e.Address,
				Phone:    e.Phone,
				Email:    e.Email,
				Website:  e.Website,
				CityID:   cityID,
				TypeID:   typeID,
				SectorID: sectorID,
			}
		})
	if err != nil {
		return err
	}

	for _, f := range e.Formations {
		mentionID, err := optionalRef(s.mentions, f.Mention, "mention")
		if err != nil {
			return fmt.Errorf("formation %q: %w", f.Name, err)
		}
		levelID, err := optionalRef(s.levels, f.Level, "level")
		if err != nil {
			return fmt.Errorf("formation %q: %w", f.Name, err)
		}
		_, err = ensure(ctx, s.cats.Formations, f.Name, map[string]int64{"establishment_id": estID}, rep,
			func(x *domain.Formation) (string, int64) { return x.Name, x.ID },
			func() *domain.Formation {
				return &domain.Formation{
					Name:            f.Name,
					DurationMonths:  f.DurationMonths,
					Diploma:         f.Diploma,
					TuitionFee:      f.TuitionFee,
					EstablishmentID: estID,
					MentionID:       mentionID,
					LevelID:         levelID,
				}
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// ensure finds a row by name under the filters, or creates it / Trouve une ligne par nom ou la crée
func ensure[T any, P service.Entity[T]](
	ctx context.Context,
	c *service.Catalog[T, P],
	name string,
	filters map[string]int64,
	rep *Report,
	ident func(*T) (string, int64),
	build func() *T,
) (int64, error) {
	q := domain.ListQuery{Page: domain.Page{Number: 1, PerPage: domain.MaxPerPage}, Q: name}
	for k, v := range filters {
		q = q.WithFilter(k, v)
	}
	items, _, err := c.List(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("look up %s %q: %w", c.Name(), name, err)
	}
	for i := range items {
		if n, id := ident(&items[i]); strings.EqualFold(n, name) {
			rep.add(c.Name(), false)
			return id, nil
		}
	}

	created, err := c.Create(ctx, 0, build())
	if err != nil {
		return 0, fmt.Errorf("create %s %q: %w", c.Name(), name, err)
	}
	rep.add(c.Name(), true)
	_, id := ident(created)
	return id, nil
}

func optionalRef(index map[string]int64, name, kind string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	id, ok := index[key(name)]
	if !ok {
		return nil, fmt.Errorf("unknown %s %q", kind, name)
	}
	return &id, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
