package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshelf/elib/internal/domain/wishlist"
)

const (
	listWishlistSQL = `SELECT book_id FROM wishlists WHERE member_id = $1 ORDER BY created_at`

	addWishlistSQL = `INSERT INTO wishlists (member_id, book_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	removeWishlistSQL = `DELETE FROM wishlists WHERE member_id = $1 AND book_id = $2`
)

var _ wishlist.Repository = (*WishlistRepository)(nil)

// WishlistRepository implements wishlist.Repository backed by PostgreSQL.
type WishlistRepository struct {
	pool *pgxpool.Pool
}

// NewWishlistRepository returns a WishlistRepository that uses the given pool.
func NewWishlistRepository(pool *pgxpool.Pool) *WishlistRepository {
	return &WishlistRepository{pool: pool}
}

// List returns the member's wishlisted book IDs in insertion order.
func (r *WishlistRepository) List(ctx context.Context, memberID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, listWishlistSQL, memberID)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist for member %q: %w", memberID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

// Add puts a book on the member's wishlist. Adding twice is a no-op.
func (r *WishlistRepository) Add(ctx context.Context, memberID, bookID string) error {
	if _, err := r.pool.Exec(ctx, addWishlistSQL, memberID, bookID); err != nil {
		return fmt.Errorf("adding book %q to wishlist: %w", bookID, err)
	}
	return nil
}

// Remove takes a book off the member's wishlist. Removing an absent book is
// a no-op.
func (r *WishlistRepository) Remove(ctx context.Context, memberID, bookID string) error {
	if _, err := r.pool.Exec(ctx, removeWishlistSQL, memberID, bookID); err != nil {
		return fmt.Errorf("removing book %q from wishlist: %w", bookID, err)
	}
	return nil
}
