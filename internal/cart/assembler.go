package cart

import (
	"fmt"
	"time"

	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/types"
)

// EntryFromJudgment builds a cart entry from an accepted judgment and the
// plan item it fulfills. The validator must have accepted the judgment before
// it reaches this point.
func EntryFromJudgment(j *reasoning.Judgment, item plan.RequestItem) *Entry {
	return &Entry{
		ProductName: j.ProductName,
		Brand:       j.Variant.Brand,
		Vendor:      j.Vendor,
		UnitPrice:   j.Variant.Price,
		Quantity:    item.Quantity,
		Unit:        item.Unit,
		PackWeight:  j.Variant.Weight,
		PackUnit:    j.Variant.Unit,
		Rationale:   j.Rationale,
		Confidence:  j.Confidence,
		SelectedAt:  time.Now().UTC(),
	}
}

// Assemble upserts one entry per accepted judgment into the cart. Judgments
// are applied in plan order so a later judgment for a repeated product name
// replaces the earlier entry.
func Assemble(c *Cart, judgments []*reasoning.Judgment, p *plan.Plan) {
	for _, j := range judgments {
		step := p.Find(j.ProductName)
		if step == nil {
			continue
		}
		c.Upsert(EntryFromJudgment(j, step.Item))
	}
}

// OrderSummary is the immutable checkout snapshot. Entries are copied by
// value; later cart mutations cannot reach into a finalized order.
type OrderSummary struct {
	SessionID    string    `json:"session_id"`
	Entries      []Entry   `json:"entries"`
	Total        float64   `json:"total"`
	Count        float64   `json:"count"`
	CheckedOutAt time.Time `json:"checked_out_at"`
}

// Checkout finalizes the cart into an order summary. An empty cart cannot be
// checked out.
func Checkout(c *Cart, sessionID string) (*OrderSummary, error) {
	if c.IsEmpty() {
		return nil, types.NewError(types.CART_EMPTY, "cannot check out an empty cart")
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}

	entries := make([]Entry, len(c.Entries))
	for i, e := range c.Entries {
		entries[i] = *e
	}

	return &OrderSummary{
		SessionID:    sessionID,
		Entries:      entries,
		Total:        c.AggregateTotal,
		Count:        c.AggregateCount,
		CheckedOutAt: time.Now().UTC(),
	}, nil
}

// String renders a one-line description of the summary for the message log.
func (o *OrderSummary) String() string {
	return fmt.Sprintf("order of %d items, %v units, total %.2f", len(o.Entries), o.Count, o.Total)
}
