package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openshelf/elib/internal/domain/book"
	"github.com/openshelf/elib/internal/domain/member"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems    = fmt.Errorf("items required")
	ErrNotFound      = fmt.Errorf("order not found")
	ErrReturnReason  = fmt.Errorf("return reason required")
	ErrNotReturnable = fmt.Errorf("only delivered orders can be returned")
)

// BookNotFoundError indicates a requested book does not exist in the catalog.
type BookNotFoundError struct {
	BookID string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book %s not found", e.BookID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	BookID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for book %s", e.BookID)
}

// InsufficientStockError indicates a line item exceeds the copies in stock.
type InsufficientStockError struct {
	BookID    string
	Requested int
	InStock   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("book %s: requested %d copies, %d in stock", e.BookID, e.Requested, e.InStock)
}

// ItemInput is a requested order line.
type ItemInput struct {
	BookID   string
	Quantity int
}

// PlaceRequest holds the input for placing an order.
type PlaceRequest struct {
	MemberID string
	Tier     member.Tier
	Items    []ItemInput
}

// PlaceResult holds the output of a successfully placed order.
type PlaceResult struct {
	Order *Order
	Books []book.Book
}

// Service encapsulates order placement and lifecycle business logic.
type Service struct {
	books       book.Repository
	orders      Repository
	deliveryFee decimal.Decimal
	now         func() time.Time
}

// NewService creates an order Service. deliveryFee is the flat fee charged
// on orders from non-premium members.
func NewService(books book.Repository, orders Repository, deliveryFee decimal.Decimal) *Service {
	return &Service{
		books:       books,
		orders:      orders,
		deliveryFee: deliveryFee,
		now:         time.Now,
	}
}

// Place validates the requested items against the catalog, prices the order
// with the price captured at order time, applies the membership delivery fee
// waiver, and persists the order. Stock is decremented transactionally by
// the repository.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*PlaceResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{BookID: item.BookID}
		}
		ids[i] = item.BookID
	}

	fetched, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get books: %w", err)
	}

	bookMap := make(map[string]book.Book, len(fetched))
	for _, b := range fetched {
		bookMap[b.ID] = b
	}

	books := make([]book.Book, 0, len(req.Items))
	lines := make([]LineItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		b, ok := bookMap[item.BookID]
		if !ok {
			return nil, &BookNotFoundError{BookID: item.BookID}
		}
		if item.Quantity > b.NoOfCopies {
			return nil, &InsufficientStockError{
				BookID:    item.BookID,
				Requested: item.Quantity,
				InStock:   b.NoOfCopies,
			}
		}
		books = append(books, b)

		lines[i] = LineItem{
			BookID:   item.BookID,
			Quantity: item.Quantity,
			Price:    b.Price,
		}
		subtotal = subtotal.Add(b.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	fee := s.deliveryFee
	if req.Tier.WaivesDeliveryFee() {
		fee = decimal.Zero
	}

	o := &Order{
		ID:          uuid.New().String(),
		MemberID:    req.MemberID,
		Items:       lines,
		Subtotal:    subtotal.Round(2),
		DeliveryFee: fee.Round(2),
		Total:       subtotal.Add(fee).Round(2),
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceResult{Order: o, Books: books}, nil
}

// Get returns an order by ID scoped to the owning member. Staff callers pass
// an empty memberID to bypass the ownership check.
func (s *Service) Get(ctx context.Context, memberID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if memberID != "" && o.MemberID != memberID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListByMember returns all orders placed by the given member, newest first.
func (s *Service) ListByMember(ctx context.Context, memberID string) ([]Order, error) {
	return s.orders.ListByMember(ctx, memberID)
}

// Transition advances an order's status along the lifecycle graph. Moving
// to delivered stamps the delivery time. The graph is the single authority
// on allowed moves; anything else yields an InvalidTransitionError.
func (s *Service) Transition(ctx context.Context, orderID string, to Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	var deliveredAt *time.Time
	if to == StatusDelivered {
		t := s.now()
		deliveredAt = &t
	}

	if err := s.orders.UpdateStatus(ctx, orderID, to, deliveredAt); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	o.Status = to
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return o, nil
}

// RequestReturn opens the exchange/refund track for a delivered order owned
// by the given member. A non-empty reason is mandatory; the proof image and
// refund account are optional metadata.
func (s *Service) RequestReturn(ctx context.Context, memberID, orderID string, info ReturnInfo) (*Order, error) {
	if info.Reason == "" {
		return nil, ErrReturnReason
	}

	o, err := s.Get(ctx, memberID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusDelivered {
		return nil, ErrNotReturnable
	}

	if err := s.orders.SetReturn(ctx, orderID, StatusReturnRequested, info); err != nil {
		return nil, fmt.Errorf("set return info: %w", err)
	}

	o.Status = StatusReturnRequested
	o.Return = info
	return o, nil
}
