package reasoning

import (
	"context"
	"strings"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/types"
)

// Gateway is the reasoning capability behind an opaque boundary. Callers see
// only declared inputs and structured outputs; every failure is a
// CartloopError whose Retryable flag drives the executor's classification.
type Gateway interface {
	// SelectVariant judges the best variant for a product given the full
	// vendor option map. hint is the precomputed pack-size strategy for the
	// requested quantity, nil when the request has no weight to reason
	// about. requirement is optional user context (modify requirement, or a
	// rejection reason during re-reasoning).
	SelectVariant(ctx context.Context, productName string, byVendor map[string][]catalog.Variant, hint *collector.Selection, requirement string) (*Judgment, error)

	// ClassifyFeedback maps one feedback utterance to an Intent. The target
	// products in the result are constrained to cartProducts; anything the
	// model invents outside that set is dropped by the feedback matcher.
	ClassifyFeedback(ctx context.Context, userInput string, cartProducts []string) (*Intent, error)

	// ParseItems turns a free-text shopping request into structured items.
	ParseItems(ctx context.Context, userInput string) ([]plan.RequestItem, error)
}

// parsedList is the wire shape for ParseItems output.
type parsedList struct {
	Items []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	} `json:"items"`
}

// toRequestItems converts the wire shape into plan items, normalizing names
// and filling the defaults the prompt promises (quantity 1, unit "pieces").
func (p parsedList) toRequestItems() []plan.RequestItem {
	items := make([]plan.RequestItem, 0, len(p.Items))
	for _, raw := range p.Items {
		name := catalog.NormalizeName(raw.Name)
		if name == "" {
			continue
		}
		qty := raw.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := strings.ToLower(strings.TrimSpace(raw.Unit))
		if unit == "" {
			unit = "pieces"
		}
		items = append(items, plan.RequestItem{Name: name, Quantity: qty, Unit: unit})
	}
	return items
}

// sanitizeIntent enforces the closed action set and the cart-membership
// constraint on targets after the model's answer is unmarshaled.
func sanitizeIntent(intent *Intent, cartProducts []string) *Intent {
	if !intent.Action.IsValid() {
		intent.Action = ActionUnrecognized
	}

	known := make(map[string]struct{}, len(cartProducts))
	for _, p := range cartProducts {
		known[catalog.NormalizeName(p)] = struct{}{}
	}

	kept := intent.Targets[:0]
	for _, t := range intent.Targets {
		normalized := catalog.NormalizeName(t)
		if _, ok := known[normalized]; ok {
			kept = append(kept, normalized)
		}
	}
	intent.Targets = kept
	return intent
}

// invalidOutput wraps a malformed-but-well-received model answer. Parse
// failures are permanent: retrying the identical prompt is the caller's
// re-reasoning loop's job, not the transport retry loop's.
func invalidOutput(msg string, cause error) error {
	if cause != nil {
		return types.WrapError(types.REASONING_PARSE_FAILED, msg, cause)
	}
	return types.NewError(types.REASONING_INVALID_OUTPUT, msg)
}
