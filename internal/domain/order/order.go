package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states. Transitions are monotonic
// along one of two tracks: standard fulfillment, or the exchange/refund
// track entered when a delivered order is contested.
type Status string

const (
	StatusPending         Status = "pending"
	StatusProcessing      Status = "processing"
	StatusShipped         Status = "shipped"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusReturnRequested Status = "return_requested"
	StatusReturnAccepted  Status = "return_accepted"
	StatusReturned        Status = "returned"
	StatusReturnRejected  Status = "return_rejected"
	StatusRefundInitiated Status = "refund_initiated"
	StatusRefunded        Status = "refunded"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered,
		StatusCancelled, StatusReturnRequested, StatusReturnAccepted,
		StatusReturned, StatusReturnRejected, StatusRefundInitiated,
		StatusRefunded:
		return true
	}
	return false
}

// LineItem is a single order line with the unit price captured at order time.
type LineItem struct {
	BookID   string          `json:"book_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ReturnInfo carries the metadata attached to a return or exchange request.
type ReturnInfo struct {
	Reason        string
	ProofImageURL string
	RefundAccount string
}

// Order represents a placed order.
type Order struct {
	ID          string
	MemberID    string
	Items       []LineItem
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
	Status      Status
	Return      ReturnInfo
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order and decrements catalog stock for every
	// line item in a single transaction. It returns book.ErrInsufficientStock
	// when any line exceeds the remaining copies.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByMember(ctx context.Context, memberID string) ([]Order, error)
	// UpdateStatus advances the stored status. deliveredAt is set when
	// non-nil and left untouched otherwise.
	UpdateStatus(ctx context.Context, id string, status Status, deliveredAt *time.Time) error
	// SetReturn stores return metadata together with the status change that
	// opens the exchange/refund track.
	SetReturn(ctx context.Context, id string, status Status, info ReturnInfo) error
}
