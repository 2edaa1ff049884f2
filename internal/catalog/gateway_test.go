package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/cartloop/internal/types"
)

func serveResponse(t *testing.T, handler http.HandlerFunc) *HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPGateway(srv.URL, WithHTTPClient(srv.Client()))
}

func retryableOf(t *testing.T, err error) bool {
	t.Helper()
	var cerr *types.CartloopError
	require.ErrorAs(t, err, &cerr)
	return cerr.Retryable
}

func TestHTTPGatewaySearchSuccess(t *testing.T) {
	var gotPath, gotQuery string
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("product_name")
		json.NewEncoder(w).Encode(SearchResponse{
			ProductName: "basmati_rice",
			APIVendor:   "zepto",
			Status:      "success",
			Variants: []Variant{
				{Vendor: "zepto", ProductName: "basmati_rice", Brand: "Daawat", Weight: 5, Unit: "kg", Price: 1550, InStock: true},
			},
		})
	})

	variants, err := g.Search(context.Background(), "zepto", "basmati_rice")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "Daawat", variants[0].Brand)
	assert.Equal(t, "/api/zepto/search", gotPath)
	assert.Equal(t, "basmati_rice", gotQuery)
}

func TestHTTPGatewaySearchNoResults(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResponse{Status: "no_results"})
	})

	variants, err := g.Search(context.Background(), "zepto", "unicorn_dust")
	require.NoError(t, err)
	assert.Empty(t, variants)
}

func TestHTTPGatewayServerErrorIsRetryable(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_UNAVAILABLE, types.CodeOf(err))
	assert.True(t, retryableOf(t, err))
}

func TestHTTPGatewayClientErrorIsPermanent(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_SEARCH_FAILED, types.CodeOf(err))
	assert.False(t, retryableOf(t, err))
}

func TestHTTPGatewayMalformedBodyIsPermanent(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_INVALID_RESPONSE, types.CodeOf(err))
	assert.False(t, retryableOf(t, err))
}

func TestHTTPGatewayErrorStatusIsRetryable(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResponse{Status: "error", ErrorMessage: "search backend overloaded"})
	})

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_UNAVAILABLE, types.CodeOf(err))
	assert.True(t, retryableOf(t, err))
	assert.Contains(t, err.Error(), "search backend overloaded")
}

func TestHTTPGatewayUnknownStatusIsPermanent(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResponse{Status: "maybe"})
	})

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_INVALID_RESPONSE, types.CodeOf(err))
	assert.False(t, retryableOf(t, err))
}

func TestHTTPGatewayInvalidVariantIsPermanent(t *testing.T) {
	g := serveResponse(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchResponse{
			Status: "success",
			Variants: []Variant{
				{Vendor: "zepto", Brand: "Madhur", Weight: 1, Unit: "kg", Price: 0, InStock: true},
			},
		})
	})

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_INVALID_RESPONSE, types.CodeOf(err))
}

func TestHTTPGatewayTimeoutIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	g := NewHTTPGateway(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_TIMEOUT, types.CodeOf(err))
	assert.True(t, retryableOf(t, err))
}

func TestHTTPGatewayContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	g := NewHTTPGateway(srv.URL, WithHTTPClient(srv.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := g.Search(ctx, "zepto", "sugar")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPGatewayUnreachableIsRetryable(t *testing.T) {
	// A server that is already closed gives connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g := NewHTTPGateway(srv.URL)

	_, err := g.Search(context.Background(), "zepto", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_UNAVAILABLE, types.CodeOf(err))
	assert.True(t, retryableOf(t, err))
}
