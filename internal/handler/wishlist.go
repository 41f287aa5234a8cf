package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/openshelf/elib/internal/domain/book"
)

type wishlistResponse struct {
	BookIDs []string `json:"bookIds"`
}

type wishlistAddRequest struct {
	BookID string `json:"bookId"`
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	ids, err := h.wishlists.List(r.Context(), claims.MemberID)
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list wishlist"))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, r, http.StatusOK, wishlistResponse{BookIDs: ids})
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req wishlistAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.books.GetByID(r.Context(), req.BookID); err != nil {
		if errors.Is(err, book.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "book not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "get wishlist book"))
		return
	}

	if err := h.wishlists.Add(r.Context(), claims.MemberID, req.BookID); err != nil {
		respondInternal(w, r, errors.Wrap(err, "add to wishlist"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := h.wishlists.Remove(r.Context(), claims.MemberID, chi.URLParam(r, "bookID")); err != nil {
		respondInternal(w, r, errors.Wrap(err, "remove from wishlist"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
