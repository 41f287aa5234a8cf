package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPRemote talks to the e-library cart API. Fetch resolves the mirror's
// bare book IDs against the public catalog so the cart always carries full
// book data.
type HTTPRemote struct {
	baseURL string
	token   func() string
	client  *http.Client
}

// NewHTTPRemote creates an HTTPRemote for the API at baseURL (without the
// /api suffix). token is consulted per request so a login mid-session takes
// effect immediately.
func NewHTTPRemote(baseURL string, token func() string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type wireItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type wireCart struct {
	Items []wireItem `json:"items"`
}

// Fetch returns the server-held cart with book data resolved from the
// catalog. Lines whose book no longer exists are dropped.
func (r *HTTPRemote) Fetch(ctx context.Context) ([]Item, error) {
	var cart wireCart
	if err := r.get(ctx, "/api/cart", true, &cart); err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, nil
	}

	var books []Book
	if err := r.get(ctx, "/api/books", false, &books); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	byID := make(map[string]Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	items := make([]Item, 0, len(cart.Items))
	for _, w := range cart.Items {
		b, ok := byID[w.BookID]
		if !ok {
			continue
		}
		items = append(items, Item{Book: b, Quantity: w.Quantity})
	}
	return items, nil
}

// Replace overwrites the server-held cart with the given snapshot.
func (r *HTTPRemote) Replace(ctx context.Context, items []Item) error {
	wire := wireCart{Items: make([]wireItem, len(items))}
	for i, it := range items {
		wire.Items[i] = wireItem{BookID: it.Book.ID, Quantity: it.Quantity}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.baseURL+"/api/cart", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token())

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("replace cart: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (r *HTTPRemote) get(ctx context.Context, path string, authed bool, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return err
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+r.token())
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
