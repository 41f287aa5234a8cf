//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDGenerated(t *testing.T) {
	resp := do(t, http.MethodGet, "/livez", nil)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDEchoed(t *testing.T) {
	resp := do(t, http.MethodGet, "/livez", nil, func(r *http.Request) {
		r.Header.Set("X-Request-ID", "custom-request-id-12345")
	})
	defer resp.Body.Close()

	assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	resp := do(t, http.MethodOptions, "/api/books", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://example.com")
		r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestCORSSimpleRequest(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/books", nil, func(r *http.Request) {
		r.Header.Set("Origin", "http://example.com")
	})
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimitHeaders(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/books", nil)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
}
