package service

import (
	"context"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Groupings understood by the stats store / Regroupements connus du store
const (
	groupEstablishmentsPerRegion = "establishments_per_region"
	groupEstablishmentsPerSector = "establishments_per_sector"
	groupFormationsPerLevel      = "formations_per_level"
)

// StatsService computes dashboard counters / Calcule les compteurs des tableaux de bord
type StatsService struct {
	stats ports.StatsRepository
	users ports.UserStatsRepository
}

// NewStatsService creates the stats use-case / Crée le cas d'usage des statistiques
func NewStatsService(stats ports.StatsRepository, users ports.UserStatsRepository) *StatsService {
	return &StatsService{stats: stats, users: users}
}

// Public returns the home page counters / Retourne les compteurs publics
func (s *StatsService) Public(ctx context.Context) (*domain.PublicStats, error) {
	var out domain.PublicStats
	g, ctx := errgroup.WithContext(ctx)
	s.countInto(ctx, g, "establishments", &out.Establishments)
	s.countInto(ctx, g, "formations", &out.Formations)
	s.countInto(ctx, g, "domains", &out.Domains)
	s.countInto(ctx, g, "regions", &out.Regions)
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return &out, nil
}

// Admin returns the back-office counters / Retourne les compteurs du back-office
func (s *StatsService) Admin(ctx context.Context) (*domain.AdminStats, error) {
	var out domain.AdminStats
	g, ctx := errgroup.WithContext(ctx)

	s.countInto(ctx, g, "establishments", &out.Establishments)
	s.countInto(ctx, g, "formations", &out.Formations)
	s.countInto(ctx, g, "domains", &out.Domains)
	s.countInto(ctx, g, "regions", &out.Regions)
	s.groupInto(ctx, g, groupEstablishmentsPerRegion, &out.EstablishmentsPerRegion)
	s.groupInto(ctx, g, groupEstablishmentsPerSector, &out.EstablishmentsPerSector)
	s.groupInto(ctx, g, groupFormationsPerLevel, &out.FormationsPerLevel)

	g.Go(func() error {
		byRole, err := s.users.CountByRole(ctx)
		out.UsersByRole = byRole
		return err
	})
	g.Go(func() error {
		verified, err := s.users.CountVerified(ctx)
		out.VerifiedUsers = verified
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return &out, nil
}

// Each goroutine writes a distinct field / Chaque goroutine écrit un champ distinct
func (s *StatsService) countInto(ctx context.Context, g *errgroup.Group, table string, dst *int) {
	g.Go(func() error {
		n, err := s.stats.Count(ctx, table)
		*dst = n
		return err
	})
}

func (s *StatsService) groupInto(ctx context.Context, g *errgroup.Group, grouping string, dst *[]domain.StatBucket) {
	g.Go(func() error {
		buckets, err := s.stats.CountGrouped(ctx, grouping)
		*dst = buckets
		return err
	})
}
