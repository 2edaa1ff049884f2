package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/cartloop/internal/types"
)

func TestSimGatewayLoadsEmbeddedSeed(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)

	vendors := g.Vendors()
	assert.ElementsMatch(t, DefaultVendors, vendors)

	variants, err := g.Search(context.Background(), "zepto", "basmati_rice")
	require.NoError(t, err)
	require.NotEmpty(t, variants)
	for _, v := range variants {
		assert.Equal(t, "zepto", v.Vendor)
		assert.Equal(t, "basmati_rice", v.ProductName)
		require.NoError(t, v.Validate())
	}
}

func TestSimGatewaySearchNormalizesProductName(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)

	spaced, err := g.Search(context.Background(), "zepto", "Basmati Rice")
	require.NoError(t, err)
	canonical, err := g.Search(context.Background(), "zepto", "basmati_rice")
	require.NoError(t, err)
	assert.Equal(t, canonical, spaced)
}

func TestSimGatewaySearchReturnsCopies(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)
	ctx := context.Background()

	first, err := g.Search(ctx, "zepto", "sugar")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	first[0].Price = -1

	second, err := g.Search(ctx, "zepto", "sugar")
	require.NoError(t, err)
	assert.Positive(t, second[0].Price, "mutating a search result must not corrupt the seed")
}

func TestSimGatewayUnknownProduct(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)

	variants, err := g.Search(context.Background(), "zepto", "unicorn_dust")
	require.NoError(t, err)
	assert.Empty(t, variants)
}

func TestSimGatewayUnknownVendor(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)

	_, err = g.Search(context.Background(), "nosuchvendor", "sugar")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_SEARCH_FAILED, types.CodeOf(err))

	var cerr *types.CartloopError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, cerr.Retryable)
}

func TestSimGatewayFailVendor(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)
	ctx := context.Background()

	injected := types.NewRetryableError(types.CATALOG_UNAVAILABLE, "zepto is down")
	g.FailVendor("zepto", injected)

	_, err = g.Search(ctx, "zepto", "sugar")
	assert.ErrorIs(t, err, injected)

	// Other vendors are unaffected.
	_, err = g.Search(ctx, "blinkit", "basmati_rice")
	assert.NoError(t, err)

	g.FailVendor("zepto", nil)
	_, err = g.Search(ctx, "zepto", "sugar")
	assert.NoError(t, err)
}

func TestSimGatewayContextCancelled(t *testing.T) {
	g, err := NewSimGateway()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Search(ctx, "zepto", "sugar")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimGatewayFromFile(t *testing.T) {
	seed := `vendors:
  cornershop:
    oats:
      - brand: Quaker
        weight: 1
        unit: kg
        price: 210
        in_stock: true
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	g, err := NewSimGatewayFromFile(path)
	require.NoError(t, err)

	variants, err := g.Search(context.Background(), "cornershop", "oats")
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "cornershop", variants[0].Vendor)
	assert.Equal(t, "Quaker", variants[0].Brand)
}

func TestSimGatewayFromFileMissing(t *testing.T) {
	_, err := NewSimGatewayFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_SEARCH_FAILED, types.CodeOf(err))
}

func TestSimGatewayRejectsInvalidSeed(t *testing.T) {
	seed := `vendors:
  cornershop:
    oats:
      - brand: Quaker
        weight: 1
        unit: kg
        price: -5
        in_stock: true
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	_, err := NewSimGatewayFromFile(path)
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_INVALID_RESPONSE, types.CodeOf(err))
}
