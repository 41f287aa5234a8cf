package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/elib/internal/domain/auth"
	"github.com/openshelf/elib/internal/domain/book"
	"github.com/openshelf/elib/internal/domain/cart"
	"github.com/openshelf/elib/internal/domain/member"
	"github.com/openshelf/elib/internal/domain/order"
	"github.com/openshelf/elib/internal/domain/review"
	"github.com/openshelf/elib/internal/domain/wishlist"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CoverBaseURL is prepended to relative cover paths in book responses.
	// When empty, cover paths are returned as stored in the database.
	CoverBaseURL string
}

// Handler exposes the REST API, delegating business logic to the injected
// domain services and repositories.
type Handler struct {
	books        book.Repository
	members      member.Repository
	carts        cart.Repository
	orders       *order.Service
	reviews      *review.Service
	wishlists    wishlist.Repository
	tokens       *auth.TokenVerifier
	apikeys      auth.Repository
	pepper       []byte
	coverBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	books book.Repository,
	members member.Repository,
	carts cart.Repository,
	orders *order.Service,
	reviews *review.Service,
	wishlists wishlist.Repository,
	tokens *auth.TokenVerifier,
	apikeys auth.Repository,
	pepper []byte,
) *Handler {
	return &Handler{
		books:        books,
		members:      members,
		carts:        carts,
		orders:       orders,
		reviews:      reviews,
		wishlists:    wishlists,
		tokens:       tokens,
		apikeys:      apikeys,
		pepper:       pepper,
		coverBaseURL: cfg.CoverBaseURL,
	}
}

// Routes builds the API router. Public catalog endpoints need no
// credentials; member endpoints require a bearer token; admin endpoints
// require a staff API key.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/books", h.listBooks)
	r.Get("/books/{bookID}", h.getBook)
	r.Get("/books/{bookID}/reviews", h.listBookReviews)

	r.Group(func(r chi.Router) {
		r.Use(h.requireMember)

		r.Get("/cart", h.getCart)
		r.Put("/cart", h.replaceCart)

		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.placeOrder)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Post("/orders/{orderID}/return", h.requestReturn)

		r.Post("/reviews", h.submitReview)

		r.Get("/wishlist", h.getWishlist)
		r.Post("/wishlist", h.addToWishlist)
		r.Delete("/wishlist/{bookID}", h.removeFromWishlist)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAPIKey)

		r.Post("/books", h.createBook)
		r.Put("/books/{bookID}", h.updateBook)
		r.Delete("/books/{bookID}", h.deleteBook)

		r.Patch("/orders/{orderID}/status", h.transitionOrder)

		r.Get("/reviews", h.listPendingReviews)
		r.Patch("/reviews/{reviewID}", h.moderateReview)
	})

	return r
}
