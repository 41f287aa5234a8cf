package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshelf/elib/internal/domain/book"
	"github.com/openshelf/elib/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, member_id, items, subtotal, delivery_fee, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT id, member_id, items, subtotal, delivery_fee, total, status,
		return_reason, return_proof_url, refund_account, created_at, delivered_at
		FROM orders WHERE id = $1`

	listOrdersByMemberSQL = `SELECT id, member_id, items, subtotal, delivery_fee, total, status,
		return_reason, return_proof_url, refund_account, created_at, delivered_at
		FROM orders WHERE member_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $2, delivered_at = COALESCE($3, delivered_at) WHERE id = $1`

	setOrderReturnSQL = `UPDATE orders SET status = $2,
		return_reason = $3, return_proof_url = $4, refund_account = $5 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and decrements stock for every line item in
// one transaction. The guarded UPDATE keeps copies non-negative; a line
// that cannot be satisfied aborts the whole order with
// book.ErrInsufficientStock.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.BookID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for book %q: %w", item.BookID, err)
		}
		if tag.RowsAffected() == 0 {
			return book.ErrInsufficientStock
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.MemberID, itemsJSON, o.Subtotal, o.DeliveryFee, o.Total,
		string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByMember returns the member's orders, newest first.
func (r *OrderRepository) ListByMember(ctx context.Context, memberID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByMemberSQL, memberID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for member %q: %w", memberID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus advances the stored status, stamping delivered_at when given.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status, deliveredAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status), deliveredAt)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetReturn stores return metadata together with the opening status change.
func (r *OrderRepository) SetReturn(ctx context.Context, id string, status order.Status, info order.ReturnInfo) error {
	tag, err := r.pool.Exec(ctx, setOrderReturnSQL,
		id, string(status), info.Reason, info.ProofImageURL, info.RefundAccount,
	)
	if err != nil {
		return fmt.Errorf("setting return info on order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		itemsRaw []byte
		status   string
	)
	err := row.Scan(
		&o.ID, &o.MemberID, &itemsRaw, &o.Subtotal, &o.DeliveryFee, &o.Total,
		&status, &o.Return.Reason, &o.Return.ProofImageURL, &o.Return.RefundAccount,
		&o.CreatedAt, &o.DeliveredAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	return o, nil
}
