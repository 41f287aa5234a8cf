package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshelf/elib/internal/domain/review"
)

const (
	insertReviewSQL = `INSERT INTO reviews (id, book_id, member_id, rating, comment, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listReviewsByBookSQL = `SELECT id, book_id, member_id, rating, comment, status, created_at
		FROM reviews WHERE book_id = $1 AND status = $2 ORDER BY created_at DESC`

	listReviewsByStatusSQL = `SELECT id, book_id, member_id, rating, comment, status, created_at
		FROM reviews WHERE status = $1 ORDER BY created_at`

	updateReviewStatusSQL = `UPDATE reviews SET status = $2 WHERE id = $1`
)

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.pool.Exec(ctx, insertReviewSQL,
		rv.ID, rv.BookID, rv.MemberID, rv.Rating, rv.Comment, string(rv.Status), rv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating review %q: %w", rv.ID, err)
	}
	return nil
}

// ListByBook returns a book's reviews in the given moderation state.
func (r *ReviewRepository) ListByBook(ctx context.Context, bookID string, status review.Status) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsByBookSQL, bookID, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing reviews for book %q: %w", bookID, err)
	}
	return pgx.CollectRows(rows, scanReview)
}

// ListByStatus returns reviews across all books in a moderation state,
// oldest first so moderators work through the backlog in order.
func (r *ReviewRepository) ListByStatus(ctx context.Context, status review.Status) ([]review.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsByStatusSQL, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing %s reviews: %w", status, err)
	}
	return pgx.CollectRows(rows, scanReview)
}

// UpdateStatus moves a review to a new moderation state.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status review.Status) error {
	tag, err := r.pool.Exec(ctx, updateReviewStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var (
		rv     review.Review
		status string
	)
	err := row.Scan(&rv.ID, &rv.BookID, &rv.MemberID, &rv.Rating, &rv.Comment, &status, &rv.CreatedAt)
	rv.Status = review.Status(status)
	return rv, err
}
