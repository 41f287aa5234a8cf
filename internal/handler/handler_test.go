package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/elib/internal/domain/auth"
	"github.com/openshelf/elib/internal/domain/book"
	"github.com/openshelf/elib/internal/domain/cart"
	"github.com/openshelf/elib/internal/domain/member"
	"github.com/openshelf/elib/internal/domain/order"
	"github.com/openshelf/elib/internal/domain/review"
)

// --- Fakes ---

type fakeBookRepo struct {
	books map[string]book.Book
	order []string
}

func newFakeBookRepo(books ...book.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: make(map[string]book.Book)}
	for _, b := range books {
		r.books[b.ID] = b
		r.order = append(r.order, b.ID)
	}
	return r
}

func (r *fakeBookRepo) List(_ context.Context, category string) ([]book.Book, error) {
	var out []book.Book
	for _, id := range r.order {
		b := r.books[id]
		if category == "" || b.Category == category {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookRepo) GetByID(_ context.Context, id string) (*book.Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, book.ErrNotFound
	}
	return &b, nil
}

func (r *fakeBookRepo) GetByIDs(_ context.Context, ids []string) ([]book.Book, error) {
	var out []book.Book
	for _, id := range ids {
		if b, ok := r.books[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookRepo) Create(_ context.Context, b *book.Book) error {
	r.books[b.ID] = *b
	r.order = append(r.order, b.ID)
	return nil
}

func (r *fakeBookRepo) Update(_ context.Context, b *book.Book) error {
	if _, ok := r.books[b.ID]; !ok {
		return book.ErrNotFound
	}
	r.books[b.ID] = *b
	return nil
}

func (r *fakeBookRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.books[id]; !ok {
		return book.ErrNotFound
	}
	delete(r.books, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeBookRepo) DecrementStock(_ context.Context, id string, qty int) error {
	b, ok := r.books[id]
	if !ok {
		return book.ErrNotFound
	}
	if b.NoOfCopies < qty {
		return book.ErrInsufficientStock
	}
	b.NoOfCopies -= qty
	r.books[id] = b
	return nil
}

type fakeMemberRepo struct {
	members map[string]member.Member
}

func (r *fakeMemberRepo) GetByID(_ context.Context, id string) (*member.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, member.ErrNotFound
	}
	return &m, nil
}

type fakeCartRepo struct {
	carts map[string][]cart.Item
}

func (r *fakeCartRepo) Get(_ context.Context, memberID string) ([]cart.Item, error) {
	return r.carts[memberID], nil
}

func (r *fakeCartRepo) Replace(_ context.Context, memberID string, items []cart.Item) error {
	r.carts[memberID] = items
	return nil
}

type fakeOrderRepo struct {
	books  *fakeBookRepo
	orders map[string]*order.Order
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	for _, it := range o.Items {
		if err := r.books.DecrementStock(ctx, it.BookID, it.Quantity); err != nil {
			return err
		}
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListByMember(_ context.Context, memberID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range r.orders {
		if o.MemberID == memberID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id string, status order.Status, deliveredAt *time.Time) error {
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return nil
}

func (r *fakeOrderRepo) SetReturn(_ context.Context, id string, status order.Status, info order.ReturnInfo) error {
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.Return = info
	return nil
}

type fakeReviewRepo struct {
	reviews map[string]*review.Review
}

func (r *fakeReviewRepo) Create(_ context.Context, rv *review.Review) error {
	cp := *rv
	r.reviews[rv.ID] = &cp
	return nil
}

func (r *fakeReviewRepo) ListByBook(_ context.Context, bookID string, status review.Status) ([]review.Review, error) {
	var out []review.Review
	for _, rv := range r.reviews {
		if rv.BookID == bookID && rv.Status == status {
			out = append(out, *rv)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) ListByStatus(_ context.Context, status review.Status) ([]review.Review, error) {
	var out []review.Review
	for _, rv := range r.reviews {
		if rv.Status == status {
			out = append(out, *rv)
		}
	}
	return out, nil
}

func (r *fakeReviewRepo) UpdateStatus(_ context.Context, id string, status review.Status) error {
	rv, ok := r.reviews[id]
	if !ok {
		return review.ErrNotFound
	}
	rv.Status = status
	return nil
}

type fakeWishlistRepo struct {
	lists map[string][]string
}

func (r *fakeWishlistRepo) List(_ context.Context, memberID string) ([]string, error) {
	return r.lists[memberID], nil
}

func (r *fakeWishlistRepo) Add(_ context.Context, memberID, bookID string) error {
	for _, id := range r.lists[memberID] {
		if id == bookID {
			return nil
		}
	}
	r.lists[memberID] = append(r.lists[memberID], bookID)
	return nil
}

func (r *fakeWishlistRepo) Remove(_ context.Context, memberID, bookID string) error {
	for i, id := range r.lists[memberID] {
		if id == bookID {
			r.lists[memberID] = append(r.lists[memberID][:i], r.lists[memberID][i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeAPIKeyRepo struct {
	keys map[string]*auth.APIKeyInfo
}

var errKeyNotFound = errors.New("api key not found")

func (r *fakeAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := r.keys[hash]
	if !ok {
		return nil, errKeyNotFound
	}
	return info, nil
}

// --- Test environment ---

const (
	testSecret = "test-token-secret"
	testPepper = "test-pepper"
	testAPIKey = "staff-key"

	basicID   = "member-basic"
	premiumID = "member-premium"
)

func seedBooks() []book.Book {
	return []book.Book{
		{ID: "b1", Title: "Dune", Author: "Frank Herbert", Category: "fiction",
			Price: decimal.RequireFromString("18.99"), NoOfCopies: 3, CoverURL: "covers/b1.jpg"},
		{ID: "b2", Title: "The Hobbit", Author: "J.R.R. Tolkien", Category: "fiction",
			Price: decimal.RequireFromString("14.95"), NoOfCopies: 1, CoverURL: "covers/b2.jpg"},
		{ID: "b3", Title: "Clean Code", Author: "Robert C. Martin", Category: "programming",
			Price: decimal.RequireFromString("34.50"), NoOfCopies: 0, CoverURL: "covers/b3.jpg"},
	}
}

type env struct {
	books   *fakeBookRepo
	carts   *fakeCartRepo
	orders  *fakeOrderRepo
	reviews *fakeReviewRepo
	wishes  *fakeWishlistRepo
	handler http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()

	books := newFakeBookRepo(seedBooks()...)
	carts := &fakeCartRepo{carts: make(map[string][]cart.Item)}
	orders := &fakeOrderRepo{books: books, orders: make(map[string]*order.Order)}
	reviews := &fakeReviewRepo{reviews: make(map[string]*review.Review)}
	wishes := &fakeWishlistRepo{lists: make(map[string][]string)}
	members := &fakeMemberRepo{members: map[string]member.Member{
		basicID:   {ID: basicID, Name: "Basil", Tier: member.TierBasic},
		premiumID: {ID: premiumID, Name: "Ada", Tier: member.TierPremium},
	}}
	apikeys := &fakeAPIKeyRepo{keys: map[string]*auth.APIKeyInfo{
		auth.HashKey([]byte(testPepper), testAPIKey): {
			ID:      "k1",
			KeyHash: auth.HashKey([]byte(testPepper), testAPIKey),
			Name:    "test",
			Scopes:  []string{"admin"},
		},
	}}

	orderSvc := order.NewService(books, orders, decimal.RequireFromString("4.99"))
	reviewSvc := review.NewService(reviews)

	h := New(
		Config{CoverBaseURL: "https://cdn.test/"},
		books,
		members,
		carts,
		orderSvc,
		reviewSvc,
		wishes,
		auth.NewTokenVerifier([]byte(testSecret)),
		apikeys,
		[]byte(testPepper),
	)

	return &env{
		books:   books,
		carts:   carts,
		orders:  orders,
		reviews: reviews,
		wishes:  wishes,
		handler: h.Routes(),
	}
}

func memberToken(t *testing.T, memberID, tier string) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"memberId": memberID,
		"tier":     tier,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

type reqOption func(*http.Request)

func asMember(t *testing.T, memberID, tier string) reqOption {
	token := memberToken(t, memberID, tier)
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func asStaff() reqOption {
	return func(r *http.Request) {
		r.Header.Set("api_key", testAPIKey)
	}
}

func (e *env) do(t *testing.T, method, path string, body any, opts ...reqOption) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}
