package collector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/retry"
	"github.com/cartloop/cartloop/internal/types"
)

func fastPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Millisecond,
	}
}

// stubGateway routes searches to a per-vendor function and counts calls.
type stubGateway struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(vendor, productName string) ([]catalog.Variant, error)
}

func (s *stubGateway) Search(ctx context.Context, vendor, productName string) ([]catalog.Variant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[vendor]++
	s.mu.Unlock()
	return s.fn(vendor, productName)
}

func (s *stubGateway) callCount(vendor string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[vendor]
}

func TestCollectRanksAcrossVendors(t *testing.T) {
	sim, err := catalog.NewSimGateway()
	require.NoError(t, err)

	c := New(sim, WithPolicy(fastPolicy()))
	result, err := c.Collect(context.Background(), "basmati_rice")
	require.NoError(t, err)

	require.NotEmpty(t, result.Ranked)
	assert.Equal(t, []string{"bigbasket", "blinkit", "swiggy_instamart", "zepto"}, result.QueriedVendors)
	assert.Empty(t, result.FailedVendors)

	// Cheapest per-kg variant ranks first: bigbasket 1kg at 310 against
	// 315/320/330 elsewhere.
	top := result.Ranked[0]
	assert.Equal(t, "bigbasket", top.Vendor)
	assert.InDelta(t, 310, PricePerBaseUnit(top), 1e-9)

	for i := 1; i < len(result.Ranked); i++ {
		assert.LessOrEqual(t, PricePerBaseUnit(result.Ranked[i-1]), PricePerBaseUnit(result.Ranked[i]))
	}
}

func TestCollectVendorFailureDoesNotBlockOthers(t *testing.T) {
	sim, err := catalog.NewSimGateway()
	require.NoError(t, err)
	sim.FailVendor("zepto", types.NewError(types.CATALOG_SEARCH_FAILED, "vendor down"))

	c := New(sim, WithPolicy(fastPolicy()))
	result, err := c.Collect(context.Background(), "basmati_rice")
	require.NoError(t, err)

	assert.NotContains(t, result.QueriedVendors, "zepto")
	assert.Contains(t, result.FailedVendors, "zepto")
	assert.Equal(t, []string{"bigbasket", "blinkit", "swiggy_instamart"}, result.QueriedVendors)
	for _, v := range result.Ranked {
		assert.NotEqual(t, "zepto", v.Vendor)
	}
}

func TestCollectAllVendorsFail(t *testing.T) {
	gw := &stubGateway{fn: func(vendor, productName string) ([]catalog.Variant, error) {
		return nil, types.NewError(types.CATALOG_SEARCH_FAILED, "down")
	}}

	c := New(gw, WithPolicy(fastPolicy()))
	_, err := c.Collect(context.Background(), "basmati_rice")
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_NO_VARIANTS, types.CodeOf(err))

	// Permanent failures are never retried.
	for _, vendor := range catalog.DefaultVendors {
		assert.Equal(t, 1, gw.callCount(vendor), vendor)
	}
}

func TestCollectRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	failuresLeft := map[string]int{"blinkit": 2}

	gw := &stubGateway{fn: func(vendor, productName string) ([]catalog.Variant, error) {
		mu.Lock()
		defer mu.Unlock()
		if failuresLeft[vendor] > 0 {
			failuresLeft[vendor]--
			return nil, types.NewRetryableError(types.CATALOG_TIMEOUT, "timeout")
		}
		return []catalog.Variant{{
			Vendor: vendor, ProductName: productName, Brand: "Acme",
			Weight: 1, Unit: "kg", Price: 100, InStock: true,
		}}, nil
	}}

	c := New(gw, WithPolicy(fastPolicy()), WithVendors([]string{"bigbasket", "blinkit"}))
	result, err := c.Collect(context.Background(), "sugar")
	require.NoError(t, err)

	assert.Equal(t, 3, gw.callCount("blinkit"))
	assert.Equal(t, 1, gw.callCount("bigbasket"))
	assert.ElementsMatch(t, []string{"bigbasket", "blinkit"}, result.QueriedVendors)
	assert.Len(t, result.Ranked, 2)
}

func TestRankDeterministicTieBreak(t *testing.T) {
	variants := []catalog.Variant{
		{Vendor: "zepto", Brand: "A", Weight: 1, Unit: "kg", Price: 100},
		{Vendor: "bigbasket", Brand: "B", Weight: 1, Unit: "kg", Price: 100},
		{Vendor: "blinkit", Brand: "C", Weight: 500, Unit: "g", Price: 45},
	}

	ranked := Rank(variants)

	// 90/kg beats the 100/kg tie; the tie resolves by vendor name.
	assert.Equal(t, "blinkit", ranked[0].Vendor)
	assert.Equal(t, "bigbasket", ranked[1].Vendor)
	assert.Equal(t, "zepto", ranked[2].Vendor)
}

func TestPricePerBaseUnit(t *testing.T) {
	assert.InDelta(t, 310, PricePerBaseUnit(catalog.Variant{Weight: 1, Unit: "kg", Price: 310}), 1e-9)
	assert.InDelta(t, 290, PricePerBaseUnit(catalog.Variant{Weight: 5, Unit: "kg", Price: 1450}), 1e-9)
	assert.InDelta(t, 90, PricePerBaseUnit(catalog.Variant{Weight: 500, Unit: "g", Price: 45}), 1e-9)
	assert.InDelta(t, 30, PricePerBaseUnit(catalog.Variant{Weight: 2, Unit: "pieces", Price: 60}), 1e-9)
}
