package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/types"
)

func riceVariants() []catalog.Variant {
	return []catalog.Variant{
		{Vendor: "bigbasket", Brand: "bb Royal", Weight: 1, Unit: "kg", Price: 310},
		{Vendor: "zepto", Brand: "Daawat", Weight: 5, Unit: "kg", Price: 1550},
		{Vendor: "blinkit", Brand: "Fortune", Weight: 5, Unit: "kg", Price: 1620},
	}
}

func TestSelectByQuantityExactPackPreferred(t *testing.T) {
	// Aggregating 1kg packs costs 310×5 = 1550, the same as the 5kg pack;
	// without a clear saving the single pack wins.
	sel, err := SelectByQuantity(riceVariants(), 5, 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyExactPack, sel.Strategy)
	assert.Equal(t, ReasonExactPackPreferred, sel.Reason)
	assert.Equal(t, "zepto", sel.Chosen.Vendor)
	assert.InDelta(t, 1550, sel.TotalPrice, 1e-9)
}

func TestSelectByQuantityAggregationCheaper(t *testing.T) {
	variants := []catalog.Variant{
		{Vendor: "bigbasket", Brand: "bb Royal", Weight: 1, Unit: "kg", Price: 200},
		{Vendor: "zepto", Brand: "Daawat", Weight: 5, Unit: "kg", Price: 1550},
	}

	// 5 × 200 = 1000 < 1550 × 0.85, so aggregation dominates.
	sel, err := SelectByQuantity(variants, 5, 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyAggregation, sel.Strategy)
	assert.Equal(t, ReasonAggregationCheaper, sel.Reason)
	assert.Equal(t, "bigbasket", sel.Chosen.Vendor)
	assert.InDelta(t, 1000, sel.TotalPrice, 1e-9)
}

func TestSelectByQuantityNoExactPack(t *testing.T) {
	variants := []catalog.Variant{
		{Vendor: "zepto", Brand: "Madhur", Weight: 1, Unit: "kg", Price: 54},
		{Vendor: "blinkit", Brand: "Uttam", Weight: 500, Unit: "g", Price: 29},
	}

	sel, err := SelectByQuantity(variants, 3, 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyAggregation, sel.Strategy)
	assert.Equal(t, ReasonNoExactPack, sel.Reason)
	// 54/kg beats 58/kg from the 500g pack.
	assert.Equal(t, "zepto", sel.Chosen.Vendor)
	assert.InDelta(t, 162, sel.TotalPrice, 1e-9)
}

func TestSelectByQuantityGramNormalization(t *testing.T) {
	variants := []catalog.Variant{
		{Vendor: "zepto", Brand: "Red Label", Weight: 500, Unit: "g", Price: 280},
	}

	sel, err := SelectByQuantity(variants, 0.5, 0)
	require.NoError(t, err)

	assert.Equal(t, StrategyExactPack, sel.Strategy)
	assert.InDelta(t, 280, sel.TotalPrice, 1e-9)
}

func TestSelectByQuantityErrors(t *testing.T) {
	_, err := SelectByQuantity(nil, 1, 0)
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_NO_VARIANTS, types.CodeOf(err))

	_, err = SelectByQuantity(riceVariants(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, types.CATALOG_INVALID_RESPONSE, types.CodeOf(err))
}
