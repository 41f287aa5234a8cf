//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRequiresToken(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/cart", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCartRoundTrip(t *testing.T) {
	token := memberToken(t, basicMemberID, "basic")

	// A member starts with an empty cart.
	resp := do(t, http.MethodGet, "/api/cart", nil, asMember(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	assert.Empty(t, cart.Items)

	// Replace with two items.
	put := cartResponse{Items: []cartItem{
		{BookID: "9780441013593", Quantity: 2},
		{BookID: "9780547928227", Quantity: 1},
	}}
	resp = do(t, http.MethodPut, "/api/cart", put, asMember(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	assert.Len(t, cart.Items, 2)

	// The stored mirror comes back on the next fetch.
	resp = do(t, http.MethodGet, "/api/cart", nil, asMember(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "9780441013593", cart.Items[0].BookID)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	// Clean up for other tests.
	resp = do(t, http.MethodPut, "/api/cart", cartResponse{}, asMember(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCartReplaceNormalizes(t *testing.T) {
	token := memberToken(t, basicMemberID, "basic")

	put := cartResponse{Items: []cartItem{
		// More copies than the catalog has (Pirsig is seeded with 3).
		{BookID: "9780385472579", Quantity: 50},
		// Unknown book.
		{BookID: "0000000000000", Quantity: 1},
		// Seeded with zero copies.
		{BookID: "9781491973899", Quantity: 1},
	}}
	resp := do(t, http.MethodPut, "/api/cart", put, asMember(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	require.Len(t, cart.Items, 1, "unknown and out-of-stock items are dropped")
	assert.Equal(t, "9780385472579", cart.Items[0].BookID)
	assert.Equal(t, 3, cart.Items[0].Quantity, "quantity is clamped to available copies")

	resp = do(t, http.MethodPut, "/api/cart", cartResponse{}, asMember(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
