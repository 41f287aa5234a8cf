package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openshelf/elib/internal/domain/book"
)

const (
	listBooksSQL = `SELECT id, title, author, category, price, no_of_copies, cover_url
		FROM books WHERE $1 = '' OR category = $1 ORDER BY id`

	getBookByIDSQL = `SELECT id, title, author, category, price, no_of_copies, cover_url
		FROM books WHERE id = $1`

	getBooksByIDsSQL = `SELECT id, title, author, category, price, no_of_copies, cover_url
		FROM books WHERE id = ANY($1)`

	insertBookSQL = `INSERT INTO books (id, title, author, category, price, no_of_copies, cover_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateBookSQL = `UPDATE books SET title = $2, author = $3, category = $4,
		price = $5, no_of_copies = $6, cover_url = $7 WHERE id = $1`

	deleteBookSQL = `DELETE FROM books WHERE id = $1`

	decrementStockSQL = `UPDATE books SET no_of_copies = no_of_copies - $2
		WHERE id = $1 AND no_of_copies >= $2`
)

var _ book.Repository = (*BookRepository)(nil)

// BookRepository implements book.Repository backed by PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// List returns catalog books ordered by ID, optionally filtered by category.
func (r *BookRepository) List(ctx context.Context, category string) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, listBooksSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

// GetByID returns a single book by its identifier.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*book.Book, error) {
	rows, err := r.pool.Query(ctx, getBookByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting book %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBook)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %q: %w", id, err)
	}
	return &b, nil
}

// GetByIDs returns books matching any of the given IDs.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, getBooksByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting books by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanBook)
}

// Create inserts a new catalog book.
func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	_, err := r.pool.Exec(ctx, insertBookSQL,
		b.ID, b.Title, b.Author, b.Category, b.Price, b.NoOfCopies, b.CoverURL,
	)
	if err != nil {
		return fmt.Errorf("creating book %q: %w", b.ID, err)
	}
	return nil
}

// Update replaces all mutable fields of a catalog book.
func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	tag, err := r.pool.Exec(ctx, updateBookSQL,
		b.ID, b.Title, b.Author, b.Category, b.Price, b.NoOfCopies, b.CoverURL,
	)
	if err != nil {
		return fmt.Errorf("updating book %q: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// Delete removes a catalog book.
func (r *BookRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteBookSQL, id)
	if err != nil {
		return fmt.Errorf("deleting book %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrNotFound
	}
	return nil
}

// DecrementStock atomically subtracts qty copies, failing when fewer remain.
func (r *BookRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	tag, err := r.pool.Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for book %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return book.ErrInsufficientStock
	}
	return nil
}

func scanBook(row pgx.CollectableRow) (book.Book, error) {
	var (
		b     book.Book
		price decimal.Decimal
	)
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &price, &b.NoOfCopies, &b.CoverURL)
	b.Price = price
	return b, err
}
