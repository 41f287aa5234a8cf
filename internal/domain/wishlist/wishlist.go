package wishlist

import "context"

// Repository defines persistence for per-member wishlists. A wishlist is a
// set of book IDs; Add is idempotent and Remove on an absent entry is a
// no-op.
type Repository interface {
	List(ctx context.Context, memberID string) ([]string, error)
	Add(ctx context.Context, memberID, bookID string) error
	Remove(ctx context.Context, memberID, bookID string) error
}
