package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/orientamada/orientamada/internal/apperr"
	"github.com/orientamada/orientamada/internal/config"
	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
	"github.com/orientamada/orientamada/internal/repository"
)

// maxCommentLength bounds review comments in runes / Longueur maximale d'un commentaire
const maxCommentLength = 2000

// ReviewMetricsRecorder records review metrics / Enregistre les métriques des avis
type ReviewMetricsRecorder interface {
	RecordReviewCreated()
}

// ReviewService manages establishment reviews / Gère les avis sur les établissements
type ReviewService struct {
	reviews        ports.ReviewRepository
	establishments ports.CatalogRepository[domain.Establishment]
	users          ports.UserReader
	permissions    ports.PermissionRepository
	pagination     config.PaginationConfig
	metrics        ReviewMetricsRecorder
}

// NewReviewService creates the review use-case / Crée le cas d'usage des avis
func NewReviewService(
	reviews ports.ReviewRepository,
	establishments ports.CatalogRepository[domain.Establishment],
	users ports.UserRepository,
	conf *config.Config,
	metrics ReviewMetricsRecorder,
) *ReviewService {
	return &ReviewService{
		reviews:        reviews,
		establishments: establishments,
		users:          users,
		permissions:    users,
		pagination:     conf.Pagination,
		metrics:        metrics,
	}
}

func (s *ReviewService) requireEstablishment(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.NotFound("not_found", "establishment not found")
	}
	if _, err := s.establishments.GetByID(ctx, id); err != nil {
		return apperr.FromRepository(err, "establishment", apperr.OpRead)
	}
	return nil
}

// List returns one page of reviews for an establishment / Retourne une page d'avis
func (s *ReviewService) List(ctx context.Context, establishmentID int64, page domain.Page) ([]domain.Review, domain.PageMeta, error) {
	if err := s.requireEstablishment(ctx, establishmentID); err != nil {
		return nil, domain.PageMeta{}, err
	}

	page = page.Normalize(s.pagination.DefaultPerPage, s.pagination.MaxPerPage)
	items, total, err := s.reviews.ListByEstablishment(ctx, establishmentID, page)
	if err != nil {
		return nil, domain.PageMeta{}, apperr.FromRepository(err, "review", apperr.OpRead)
	}
	if items == nil {
		items = []domain.Review{}
	}
	return items, domain.NewPageMeta(page, total), nil
}

// Create stores the author's single review of an establishment / Enregistre l'avis unique de l'auteur
func (s *ReviewService) Create(ctx context.Context, authorID int64, review *domain.Review) (*domain.Review, error) {
	if review == nil {
		return nil, apperr.BadRequest("invalid_body", "request body is required")
	}

	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRecord) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.FromRepository(err, "user", apperr.OpRead)
	}
	if !author.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	review.UserID = authorID
	review.Comment = strings.TrimSpace(review.Comment)
	if err := review.Validate(); err != nil {
		var verrs domain.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperr.Validation(verrs)
		}
		return nil, apperr.BadRequest("invalid_body", err.Error())
	}
	if len([]rune(review.Comment)) > maxCommentLength {
		return nil, apperr.Validation(map[string]string{"comment": "too long"})
	}

	if err := s.requireEstablishment(ctx, review.EstablishmentID); err != nil {
		return nil, err
	}

	created, err := s.reviews.Create(ctx, review)
	if err != nil {
		if errors.Is(err, repository.ErrDup) {
			return nil, apperr.Conflict("review_exists", "you have already reviewed this establishment")
		}
		return nil, apperr.FromRepository(err, "review", apperr.OpWrite)
	}

	if s.metrics != nil {
		s.metrics.RecordReviewCreated()
	}
	slog.Info("review created", "review_id", created.ID, "establishment_id", created.EstablishmentID, "user_id", authorID)
	return created, nil
}

// Delete removes a review; only its author or a moderator may / Supprime un avis (auteur ou modérateur)
func (s *ReviewService) Delete(ctx context.Context, actorID, reviewID int64) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return apperr.FromRepository(err, "review", apperr.OpRead)
	}

	if review.UserID != actorID {
		allowed, err := s.permissions.UserHasPermission(ctx, actorID, domain.PermissionReviewsModerate)
		if err != nil {
			return apperr.Internal(err)
		}
		if !allowed {
			return ErrForbidden
		}
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return apperr.FromRepository(err, "review", apperr.OpDelete)
	}
	return nil
}
