package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshelf/elib/internal/domain/cart"
)

const (
	getCartSQL = `SELECT items FROM carts WHERE member_id = $1`

	replaceCartSQL = `INSERT INTO carts (member_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (member_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. The whole
// cart is stored as a single JSONB document per member, matching the
// replace-wholesale sync contract.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the member's cart items. A member with no stored cart gets an
// empty cart, not an error.
func (r *CartRepository) Get(ctx context.Context, memberID string) ([]cart.Item, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, getCartSQL, memberID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []cart.Item{}, nil
		}
		return nil, fmt.Errorf("getting cart for member %q: %w", memberID, err)
	}

	var items []cart.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart for member %q: %w", memberID, err)
	}
	return items, nil
}

// Replace overwrites the member's stored cart with the given items.
func (r *CartRepository) Replace(ctx context.Context, memberID string, items []cart.Item) error {
	if items == nil {
		items = []cart.Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	if _, err := r.pool.Exec(ctx, replaceCartSQL, memberID, raw); err != nil {
		return fmt.Errorf("replacing cart for member %q: %w", memberID, err)
	}
	return nil
}
