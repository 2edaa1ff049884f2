package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/types"
)

func riceEntry() *Entry {
	return &Entry{
		ProductName: "basmati_rice",
		Brand:       "bb Royal",
		Vendor:      "bigbasket",
		UnitPrice:   310,
		Quantity:    5,
		Unit:        "kg",
	}
}

func conditionerEntry() *Entry {
	return &Entry{
		ProductName: "fabric_conditioner",
		Brand:       "Comfort",
		Vendor:      "blinkit",
		UnitPrice:   208,
		Quantity:    1,
		Unit:        "pieces",
	}
}

func TestUpsertComputesAggregates(t *testing.T) {
	c := New()

	replaced := c.Upsert(riceEntry())
	assert.False(t, replaced)
	replaced = c.Upsert(conditionerEntry())
	assert.False(t, replaced)

	assert.Equal(t, 2, c.Len())
	assert.InDelta(t, 310*5+208, c.AggregateTotal, 1e-9)
	assert.InDelta(t, 6, c.AggregateCount, 1e-9)
	assert.NoError(t, c.Verify())
}

func TestUpsertReplacesByProductName(t *testing.T) {
	c := New()
	c.Upsert(riceEntry())

	cheaper := riceEntry()
	cheaper.Vendor = "swiggy_instamart"
	cheaper.UnitPrice = 300

	replaced := c.Upsert(cheaper)
	assert.True(t, replaced)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Get("basmati_rice")
	require.True(t, ok)
	assert.Equal(t, "swiggy_instamart", got.Vendor)
	assert.InDelta(t, 1500, c.AggregateTotal, 1e-9)
}

func TestRemoveTwice(t *testing.T) {
	c := New()
	c.Upsert(riceEntry())
	c.Upsert(conditionerEntry())

	require.NoError(t, c.Remove("basmati_rice"))
	assert.Equal(t, 1, c.Len())
	assert.InDelta(t, 208, c.AggregateTotal, 1e-9)
	assert.InDelta(t, 1, c.AggregateCount, 1e-9)

	// The second removal fails and leaves the cart unchanged.
	err := c.Remove("basmati_rice")
	require.Error(t, err)
	assert.Equal(t, types.CART_ITEM_NOT_FOUND, types.CodeOf(err))
	assert.Equal(t, 1, c.Len())
	assert.InDelta(t, 208, c.AggregateTotal, 1e-9)
}

func TestVerifyDetectsDivergence(t *testing.T) {
	c := New()
	c.Upsert(riceEntry())
	require.NoError(t, c.Verify())

	c.AggregateTotal += 1
	err := c.Verify()
	require.Error(t, err)
	assert.Equal(t, types.INVARIANT_VIOLATION, types.CodeOf(err))

	c.Recalculate()
	assert.NoError(t, c.Verify())
}

func TestVerifyDetectsDuplicateProduct(t *testing.T) {
	c := New()
	c.Entries = append(c.Entries, riceEntry(), riceEntry())
	c.Recalculate()

	err := c.Verify()
	require.Error(t, err)
	assert.Equal(t, types.INVARIANT_VIOLATION, types.CodeOf(err))
}

func TestCloneIsolation(t *testing.T) {
	c := New()
	c.Upsert(riceEntry())

	clone := c.Clone()
	clone.Upsert(conditionerEntry())
	require.NoError(t, clone.Remove("basmati_rice"))

	// The original cart never sees the clone's mutations.
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("basmati_rice")
	assert.True(t, ok)
	assert.NoError(t, c.Verify())
}

func TestAssembleFromJudgments(t *testing.T) {
	p := plan.Build("s-1", []plan.RequestItem{
		{Name: "basmati_rice", Quantity: 5, Unit: "kg"},
		{Name: "sugar", Quantity: 2, Unit: "kg"},
	})

	judgments := []*reasoning.Judgment{
		{
			ProductName: "basmati_rice",
			Vendor:      "bigbasket",
			Variant:     catalog.Variant{Vendor: "bigbasket", Brand: "bb Royal", Weight: 1, Unit: "kg", Price: 310},
			Confidence:  0.95,
			Rationale:   "cheapest per kg",
		},
		{
			ProductName: "sugar",
			Vendor:      "blinkit",
			Variant:     catalog.Variant{Vendor: "blinkit", Brand: "Uttam", Weight: 1, Unit: "kg", Price: 52},
			Confidence:  0.9,
			Rationale:   "cheapest per kg",
		},
	}

	c := New()
	Assemble(c, judgments, p)

	require.Equal(t, 2, c.Len())
	rice, ok := c.Get("basmati_rice")
	require.True(t, ok)
	assert.InDelta(t, 1550, rice.LineTotal, 1e-9)
	assert.InDelta(t, 1550+104, c.AggregateTotal, 1e-9)
	assert.InDelta(t, 7, c.AggregateCount, 1e-9)
	assert.NoError(t, c.Verify())
}

func TestCheckout(t *testing.T) {
	c := New()

	_, err := Checkout(c, "s-1")
	require.Error(t, err)
	assert.Equal(t, types.CART_EMPTY, types.CodeOf(err))

	c.Upsert(riceEntry())
	summary, err := Checkout(c, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", summary.SessionID)
	assert.InDelta(t, 1550, summary.Total, 1e-9)
	assert.InDelta(t, 5, summary.Count, 1e-9)
	require.Len(t, summary.Entries, 1)

	// The snapshot is detached from later cart mutations.
	require.NoError(t, c.Remove("basmati_rice"))
	assert.Equal(t, "basmati_rice", summary.Entries[0].ProductName)
	assert.InDelta(t, 1550, summary.Total, 1e-9)
}
