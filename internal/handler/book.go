package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openshelf/elib/internal/domain/book"
)

// bookResponse is the wire representation of a catalog book.
type bookResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	NoOfCopies int     `json:"noOfCopies"`
	CoverURL   string  `json:"coverUrl"`
}

type bookRequest struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	NoOfCopies int     `json:"noOfCopies"`
	CoverURL   string  `json:"coverUrl"`
}

func (h *Handler) toBookResponse(b book.Book) bookResponse {
	return bookResponse{
		ID:         b.ID,
		Title:      b.Title,
		Author:     b.Author,
		Category:   b.Category,
		Price:      b.Price.InexactFloat64(),
		NoOfCopies: b.NoOfCopies,
		CoverURL:   h.coverBaseURL + b.CoverURL,
	}
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list books"))
		return
	}

	out := make([]bookResponse, len(books))
	for i, b := range books {
		out[i] = h.toBookResponse(b)
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.books.GetByID(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "book not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "get book"))
		return
	}
	respondJSON(w, r, http.StatusOK, h.toBookResponse(*b))
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Author == "" {
		respondError(w, r, http.StatusBadRequest, "title and author are required")
		return
	}
	if req.Price < 0 || req.NoOfCopies < 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "price and noOfCopies must be non-negative")
		return
	}

	b := &book.Book{
		ID:         uuid.New().String(),
		Title:      req.Title,
		Author:     req.Author,
		Category:   req.Category,
		Price:      decimal.NewFromFloat(req.Price),
		NoOfCopies: req.NoOfCopies,
		CoverURL:   req.CoverURL,
	}
	if err := h.books.Create(r.Context(), b); err != nil {
		respondInternal(w, r, errors.Wrap(err, "create book"))
		return
	}
	respondJSON(w, r, http.StatusCreated, h.toBookResponse(*b))
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Price < 0 || req.NoOfCopies < 0 {
		respondError(w, r, http.StatusUnprocessableEntity, "price and noOfCopies must be non-negative")
		return
	}

	b := &book.Book{
		ID:         chi.URLParam(r, "bookID"),
		Title:      req.Title,
		Author:     req.Author,
		Category:   req.Category,
		Price:      decimal.NewFromFloat(req.Price),
		NoOfCopies: req.NoOfCopies,
		CoverURL:   req.CoverURL,
	}
	if err := h.books.Update(r.Context(), b); err != nil {
		if errors.Is(err, book.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "book not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "update book"))
		return
	}
	respondJSON(w, r, http.StatusOK, h.toBookResponse(*b))
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.books.Delete(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		if errors.Is(err, book.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "book not found")
			return
		}
		respondInternal(w, r, errors.Wrap(err, "delete book"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
