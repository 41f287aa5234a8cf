package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/openshelf/elib/internal/domain/review"
)

type reviewResponse struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	MemberID  string    `json:"memberId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type submitReviewRequest struct {
	BookID  string `json:"bookId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type moderateReviewRequest struct {
	Approve bool `json:"approve"`
}

func toReviewResponse(rv review.Review) reviewResponse {
	return reviewResponse{
		ID:        rv.ID,
		BookID:    rv.BookID,
		MemberID:  rv.MemberID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		Status:    string(rv.Status),
		CreatedAt: rv.CreatedAt,
	}
}

func (h *Handler) listBookReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListApproved(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list book reviews"))
		return
	}

	out := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		out[i] = toReviewResponse(rv)
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req submitReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.BookID == "" {
		respondError(w, r, http.StatusBadRequest, "bookId is required")
		return
	}

	rv, err := h.reviews.Submit(r.Context(), claims.MemberID, req.BookID, req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, review.ErrInvalidRating) {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondInternal(w, r, errors.Wrap(err, "submit review"))
		return
	}
	respondJSON(w, r, http.StatusCreated, toReviewResponse(*rv))
}

func (h *Handler) listPendingReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListPending(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list pending reviews"))
		return
	}

	out := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		out[i] = toReviewResponse(rv)
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) moderateReview(w http.ResponseWriter, r *http.Request) {
	var req moderateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.reviews.Moderate(r.Context(), chi.URLParam(r, "reviewID"), req.Approve)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "review not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "moderate review"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
