package book

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// ErrInsufficientStock is returned when a stock decrement would drop the
// number of copies below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// Book represents a catalog entry available for borrowing or purchase.
type Book struct {
	ID         string
	Title      string
	Author     string
	Category   string
	Price      decimal.Decimal
	NoOfCopies int
	CoverURL   string
}

// Repository defines persistence operations for the book catalog.
type Repository interface {
	// List returns books ordered by ID. An empty category matches all books.
	List(ctx context.Context, category string) ([]Book, error)
	GetByID(ctx context.Context, id string) (*Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
	// DecrementStock atomically subtracts qty copies of the given book.
	// It returns ErrInsufficientStock when fewer than qty copies remain.
	DecrementStock(ctx context.Context, id string, qty int) error
}
