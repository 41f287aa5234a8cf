package cart

import (
	"context"

	"github.com/openshelf/elib/internal/domain/book"
)

// Item is a single line in a member's cart.
type Item struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// Repository defines persistence for the server-held cart mirror. The cart
// is replaced wholesale on every client sync; there are no per-item writes.
type Repository interface {
	Get(ctx context.Context, memberID string) ([]Item, error)
	Replace(ctx context.Context, memberID string, items []Item) error
}

// Normalize sanitizes an incoming cart snapshot against the catalog:
// duplicate book IDs are collapsed (first occurrence wins), lines for
// unknown books are dropped, and quantities are clamped to
// [1, NoOfCopies]. Books with zero copies in stock are dropped entirely.
func Normalize(items []Item, books map[string]book.Book) []Item {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		if _, dup := seen[it.BookID]; dup {
			continue
		}
		b, ok := books[it.BookID]
		if !ok || b.NoOfCopies <= 0 {
			continue
		}
		seen[it.BookID] = struct{}{}

		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		if qty > b.NoOfCopies {
			qty = b.NoOfCopies
		}
		out = append(out, Item{BookID: it.BookID, Quantity: qty})
	}
	return out
}
