package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/openshelf/elib/internal/domain/auth"
	"github.com/openshelf/elib/internal/domain/book"
	"github.com/openshelf/elib/internal/domain/member"
	"github.com/openshelf/elib/internal/domain/order"
)

type orderItemWire struct {
	BookID   string  `json:"book_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type progressWire struct {
	Track          string `json:"track"`
	Step           int    `json:"step"`
	Cancelled      bool   `json:"cancelled,omitempty"`
	ReturnRejected bool   `json:"returnRejected,omitempty"`
}

type countdownWire struct {
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int64     `json:"remainingSeconds"`
	Percentage       float64   `json:"percentage"`
	Urgency          string    `json:"urgency"`
	Overdue          bool      `json:"overdue"`
}

type orderResponse struct {
	ID          string          `json:"id"`
	Items       []orderItemWire `json:"items"`
	Subtotal    float64         `json:"subtotal"`
	DeliveryFee float64         `json:"deliveryFee"`
	Total       float64         `json:"total"`
	Status      string          `json:"status"`
	ReturnInfo  *returnWire     `json:"returnInfo,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	DeliveredAt *time.Time      `json:"deliveredAt,omitempty"`
	Progress    progressWire    `json:"progress"`
	Countdown   *countdownWire  `json:"countdown,omitempty"`
}

type returnWire struct {
	Reason        string `json:"reason"`
	ProofImageURL string `json:"proofImageUrl,omitempty"`
	RefundAccount string `json:"refundAccount,omitempty"`
}

type placeOrderRequest struct {
	Items []struct {
		BookID   string `json:"book_id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

type returnRequest struct {
	Reason        string `json:"reason"`
	ProofImageURL string `json:"proofImageUrl"`
	RefundAccount string `json:"refundAccount"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

// toOrderResponse derives the full wire representation of an order,
// including the stepper position and, for pending or processing orders, the
// advisory SLA countdown for the member's tier.
func toOrderResponse(o *order.Order, tier member.Tier, now time.Time) orderResponse {
	items := make([]orderItemWire, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemWire{
			BookID:   it.BookID,
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
		}
	}

	p := order.ComputeProgress(o)
	resp := orderResponse{
		ID:          o.ID,
		Items:       items,
		Subtotal:    o.Subtotal.InexactFloat64(),
		DeliveryFee: o.DeliveryFee.InexactFloat64(),
		Total:       o.Total.InexactFloat64(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
		Progress: progressWire{
			Track:          string(p.Track),
			Step:           p.Step,
			Cancelled:      p.Cancelled,
			ReturnRejected: p.ReturnRejected,
		},
	}

	if o.Return.Reason != "" {
		resp.ReturnInfo = &returnWire{
			Reason:        o.Return.Reason,
			ProofImageURL: o.Return.ProofImageURL,
			RefundAccount: o.Return.RefundAccount,
		}
	}

	if o.Status == order.StatusPending || o.Status == order.StatusProcessing {
		cd := order.ComputeCountdown(o.CreatedAt, tier, now)
		resp.Countdown = &countdownWire{
			Deadline:         cd.Deadline,
			RemainingSeconds: int64(cd.Remaining.Seconds()),
			Percentage:       cd.Percentage,
			Urgency:          string(cd.Urgency),
			Overdue:          cd.Overdue,
		}
	}

	return resp
}

// memberTier resolves the caller's tier, preferring the member record over
// the token claim so a stale token cannot keep premium benefits.
func (h *Handler) memberTier(r *http.Request, claims *auth.Claims) member.Tier {
	m, err := h.members.GetByID(r.Context(), claims.MemberID)
	if err != nil {
		return member.ParseTier(claims.Tier)
	}
	return m.Tier
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemInput{BookID: it.BookID, Quantity: it.Quantity}
	}

	tier := h.memberTier(r, claims)
	result, err := h.orders.Place(r.Context(), order.PlaceRequest{
		MemberID: claims.MemberID,
		Tier:     tier,
		Items:    items,
	})
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}

	// Checkout empties the server-held cart. Best effort: a failure here
	// leaves a stale mirror that the next client sync overwrites anyway.
	if err := h.carts.Replace(r.Context(), claims.MemberID, nil); err != nil {
		respondInternal(w, r, errors.Wrap(err, "clear cart after checkout"))
		return
	}

	respondJSON(w, r, http.StatusCreated, toOrderResponse(result.Order, tier, time.Now()))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	orders, err := h.orders.ListByMember(r.Context(), claims.MemberID)
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list orders"))
		return
	}

	tier := h.memberTier(r, claims)
	now := time.Now()
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i], tier, now)
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), claims.MemberID, chi.URLParam(r, "orderID"))
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o, h.memberTier(r, claims), time.Now()))
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req returnRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.RequestReturn(r.Context(), claims.MemberID, chi.URLParam(r, "orderID"), order.ReturnInfo{
		Reason:        req.Reason,
		ProofImageURL: req.ProofImageURL,
		RefundAccount: req.RefundAccount,
	})
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o, h.memberTier(r, claims), time.Now()))
}

// transitionOrder is the staff endpoint advancing an order along its
// lifecycle track.
func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	to := order.Status(req.Status)
	if !to.Valid() {
		respondError(w, r, http.StatusBadRequest, "unknown order status")
		return
	}

	o, err := h.orders.Transition(r.Context(), chi.URLParam(r, "orderID"), to)
	if err != nil {
		h.mapOrderError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toOrderResponse(o, member.TierBasic, time.Now()))
}

// mapOrderError converts domain errors to HTTP error responses.
func (h *Handler) mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrReturnReason):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrNotReturnable):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, book.ErrInsufficientStock):
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		var (
			iqErr  *order.InvalidQuantityError
			bnfErr *order.BookNotFoundError
			isErr  *order.InsufficientStockError
			itErr  *order.InvalidTransitionError
		)
		switch {
		case errors.As(err, &iqErr), errors.As(err, &bnfErr), errors.As(err, &isErr):
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &itErr):
			respondError(w, r, http.StatusConflict, err.Error())
		default:
			respondInternal(w, r, err)
		}
	}
}
