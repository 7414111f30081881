package sqlstore

import (
	"context"

	"github.com/orientamada/orientamada/internal/domain"
	"github.com/orientamada/orientamada/internal/ports"
)

var _ ports.ReviewRepository = (*reviewRepository)(nil)

const reviewSelect = `SELECT rv.id, rv.establishment_id, rv.user_id, u.first_name, rv.rating, rv.comment, rv.created_at, rv.updated_at
	FROM reviews rv JOIN users u ON u.id = rv.user_id`

type reviewRepository struct {
	c conn
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.EstablishmentID, &rv.UserID, &rv.AuthorName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// ListByEstablishment returns reviews newest first / Retourne les avis, plus récents d'abord
func (r *reviewRepository) ListByEstablishment(ctx context.Context, establishmentID int64, page domain.Page) ([]domain.Review, int, error) {
	var total int
	if err := r.c.scanRow(ctx, `SELECT COUNT(*) FROM reviews WHERE establishment_id = ?`, []any{establishmentID}, &total); err != nil {
		return nil, 0, err
	}

	page = page.Normalize(0, 0)
	rows, err := r.c.query(ctx, reviewSelect+` WHERE rv.establishment_id = ? ORDER BY rv.created_at DESC, rv.id DESC LIMIT ? OFFSET ?`,
		establishmentID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0, page.PerPage)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, r.c.d.TranslateError(err)
		}
		reviews = append(reviews, *rv)
	}
	return reviews, total, r.c.d.TranslateError(rows.Err())
}

func (r *reviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	rv, err := scanReview(r.c.queryRow(ctx, reviewSelect+` WHERE rv.id = ?`, id))
	return rv, r.c.d.TranslateError(err)
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	ts := now()
	id, err := r.c.insert(ctx, `INSERT INTO reviews (establishment_id, user_id, rating, comment, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		review.EstablishmentID, review.UserID, review.Rating, review.Comment, ts, ts)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	return r.c.execAffecting(ctx, `DELETE FROM reviews WHERE id = ?`, id)
}
