// Package cart holds the shopping cart model, the assembler that turns
// accepted judgments into entries, and the checkout snapshot.
//
// Totals are never adjusted incrementally: every mutation ends with a full
// recomputation over all entries, which is the single source of truth.
package cart

import (
	"fmt"
	"sort"
	"time"

	"github.com/cartloop/cartloop/internal/types"
)

// Entry is one cart line, keyed by product name. A cart contains at most one
// entry per product name; a second accepted judgment for the same product
// replaces the entry.
type Entry struct {
	ProductName string    `json:"product_name"`
	Brand       string    `json:"brand"`
	Vendor      string    `json:"vendor"`
	UnitPrice   float64   `json:"unit_price"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	PackWeight  float64   `json:"pack_weight,omitempty"`
	PackUnit    string    `json:"pack_unit,omitempty"`
	LineTotal   float64   `json:"line_total"`
	Rationale   string    `json:"rationale,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	SelectedAt  time.Time `json:"selected_at"`
}

// computeLineTotal derives the line total from unit price and quantity.
func (e *Entry) computeLineTotal() float64 {
	return e.UnitPrice * e.Quantity
}

// Cart is the mutable cart for one session. Entries preserve insertion order
// for stable caller-facing rendering.
type Cart struct {
	Entries        []*Entry  `json:"entries"`
	AggregateTotal float64   `json:"aggregate_total"`
	AggregateCount float64   `json:"aggregate_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// Upsert inserts the entry, or replaces the existing entry with the same
// product name. Returns true when an existing entry was replaced. Aggregates
// are recomputed.
func (c *Cart) Upsert(entry *Entry) bool {
	entry.LineTotal = entry.computeLineTotal()
	if entry.SelectedAt.IsZero() {
		entry.SelectedAt = time.Now().UTC()
	}

	replaced := false
	for i, existing := range c.Entries {
		if existing.ProductName == entry.ProductName {
			c.Entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		c.Entries = append(c.Entries, entry)
	}

	c.Recalculate()
	return replaced
}

// Remove deletes the entry for productName. A missing product is a
// CART_ITEM_NOT_FOUND error and leaves the cart unchanged.
func (c *Cart) Remove(productName string) error {
	for i, existing := range c.Entries {
		if existing.ProductName == productName {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			c.Recalculate()
			return nil
		}
	}
	return types.NewError(types.CART_ITEM_NOT_FOUND,
		fmt.Sprintf("product %q is not in the cart", productName))
}

// Get returns the entry for productName, if present.
func (c *Cart) Get(productName string) (*Entry, bool) {
	for _, existing := range c.Entries {
		if existing.ProductName == productName {
			return existing, true
		}
	}
	return nil, false
}

// ProductNames returns the product names currently in the cart, sorted.
func (c *Cart) ProductNames() []string {
	names := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		names = append(names, e.ProductName)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (c *Cart) Len() int {
	return len(c.Entries)
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

// Recalculate recomputes every line total and both aggregates from scratch.
func (c *Cart) Recalculate() {
	var total, count float64
	for _, e := range c.Entries {
		e.LineTotal = e.computeLineTotal()
		total += e.LineTotal
		count += e.Quantity
	}
	c.AggregateTotal = total
	c.AggregateCount = count
	c.UpdatedAt = time.Now().UTC()
}

// Verify checks the recomputation and uniqueness invariants without mutating
// the cart. A divergence is an INVARIANT_VIOLATION, fatal to the session.
func (c *Cart) Verify() error {
	seen := make(map[string]struct{}, len(c.Entries))
	var total, count float64
	for _, e := range c.Entries {
		if _, dup := seen[e.ProductName]; dup {
			return types.NewError(types.INVARIANT_VIOLATION,
				fmt.Sprintf("duplicate cart entry for product %q", e.ProductName))
		}
		seen[e.ProductName] = struct{}{}

		if e.LineTotal != e.computeLineTotal() {
			return types.NewError(types.INVARIANT_VIOLATION,
				fmt.Sprintf("line total for %q diverged from unit_price times quantity", e.ProductName))
		}
		total += e.LineTotal
		count += e.Quantity
	}
	if c.AggregateTotal != total {
		return types.NewError(types.INVARIANT_VIOLATION,
			fmt.Sprintf("aggregate total %.2f diverged from entry sum %.2f", c.AggregateTotal, total))
	}
	if c.AggregateCount != count {
		return types.NewError(types.INVARIANT_VIOLATION,
			fmt.Sprintf("aggregate count %v diverged from quantity sum %v", c.AggregateCount, count))
	}
	return nil
}

// Clone returns a deep copy. Mutators work on a clone and swap it in only on
// success, which keeps failed mutations invisible.
func (c *Cart) Clone() *Cart {
	clone := &Cart{
		AggregateTotal: c.AggregateTotal,
		AggregateCount: c.AggregateCount,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Entries != nil {
		clone.Entries = make([]*Entry, len(c.Entries))
		for i, e := range c.Entries {
			copied := *e
			clone.Entries[i] = &copied
		}
	}
	return clone
}
