package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/openshelf/elib/internal/domain/book"
	"github.com/openshelf/elib/internal/domain/cart"
)

// cartItemWire is the wire representation of a cart line.
type cartItemWire struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type cartResponse struct {
	Items []cartItemWire `json:"items"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	items, err := h.carts.Get(r.Context(), claims.MemberID)
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "get cart"))
		return
	}

	out := make([]cartItemWire, len(items))
	for i, it := range items {
		out[i] = cartItemWire{BookID: it.BookID, Quantity: it.Quantity}
	}
	respondJSON(w, r, http.StatusOK, cartResponse{Items: out})
}

// replaceCart overwrites the member's server-held cart with the submitted
// snapshot. Lines are normalized against the catalog before storage so a
// stale client can never push quantities above the copies in stock.
func (h *Handler) replaceCart(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req cartResponse
	if !decodeJSON(w, r, &req) {
		return
	}

	ids := make([]string, len(req.Items))
	items := make([]cart.Item, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.BookID
		items[i] = cart.Item{BookID: it.BookID, Quantity: it.Quantity}
	}

	books := map[string]book.Book{}
	if len(ids) > 0 {
		fetched, err := h.books.GetByIDs(r.Context(), ids)
		if err != nil {
			respondInternal(w, r, errors.Wrap(err, "get cart books"))
			return
		}
		for _, b := range fetched {
			books[b.ID] = b
		}
	}

	normalized := cart.Normalize(items, books)
	if err := h.carts.Replace(r.Context(), claims.MemberID, normalized); err != nil {
		respondInternal(w, r, errors.Wrap(err, "replace cart"))
		return
	}

	out := make([]cartItemWire, len(normalized))
	for i, it := range normalized {
		out[i] = cartItemWire{BookID: it.BookID, Quantity: it.Quantity}
	}
	respondJSON(w, r, http.StatusOK, cartResponse{Items: out})
}
