// Package cartsync implements an offline-capable borrow cart that mirrors
// itself to a per-member server-side cart.
//
// The cart lives in memory, is persisted to a local store on every change,
// and is pushed to the remote mirror in the background. The local state is
// the source of truth: remote failures are logged and never surfaced to
// callers, so the cart stays fully usable with no network or session at all.
package cartsync

import "context"

// Book is the catalog information the cart needs to enforce stock caps.
type Book struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	NoOfCopies int     `json:"noOfCopies"`
}

// Item is a cart line: a book and how many copies of it. Quantity never
// exceeds the book's NoOfCopies, and a cart holds at most one Item per
// book ID.
type Item struct {
	Book     Book `json:"book"`
	Quantity int  `json:"quantity"`
}

// LocalStore persists cart snapshots across sessions.
type LocalStore interface {
	// Load returns the persisted cart. Absence is not an error: it yields
	// an empty cart.
	Load() ([]Item, error)
	Save(items []Item) error
}

// Remote is the server-side cart mirror. Implementations fetch the current
// mirror and replace it wholesale with a local snapshot.
type Remote interface {
	Fetch(ctx context.Context) ([]Item, error)
	Replace(ctx context.Context, items []Item) error
}
