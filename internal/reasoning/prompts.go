package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
)

// System prompts for each reasoning task. Each task demands strict JSON
// output with no surrounding prose; DecodeObject still tolerates markdown
// fencing and leading chatter from smaller models.

const parseSystemPrompt = `You are a grocery list parsing assistant.
Parse the user's grocery list into structured JSON.
Extract: item_name, quantity, unit.
Return ONLY valid JSON, no markdown, no explanation.`

const selectSystemPrompt = `You are a logical reasoning expert for grocery shopping.
Make decisions about which products to buy considering vendor options.
Use deterministic reasoning, not speculation.
Return ONLY valid JSON with decision and confidence score.`

const feedbackSystemPrompt = `You are a helpful grocery shopping assistant.
Classify the user's feedback about their shopping cart into exactly one action.
Return ONLY valid JSON, no markdown, no explanation.`

// buildParsePrompt renders the free-text-to-items prompt.
func buildParsePrompt(userInput string) string {
	return fmt.Sprintf(`Parse this grocery list and return JSON:

User input: %q

Return JSON with this structure:
{
    "items": [
        {"name": "product_name", "quantity": 0.5, "unit": "kg"},
        ...
    ]
}

Rules:
- Use lowercase, underscores for item names (e.g., "basmati_rice")
- Extract quantity and unit separately
- If no unit specified, use "pieces" for countable items
- If no quantity, assume 1`, userInput)
}

// buildSelectPrompt renders the variant-selection prompt over the vendor
// option map. hint is the deterministic pack-size strategy for the requested
// quantity, when one applies. requirement carries user constraints during
// modify flows and validator rejection reasons during re-reasoning; it is
// empty on the first pass for a fresh item.
func buildSelectPrompt(productName string, byVendor map[string][]catalog.Variant, hint *collector.Selection, requirement string) string {
	type wireVariant struct {
		Brand  string  `json:"brand"`
		Weight float64 `json:"weight"`
		Unit   string  `json:"unit"`
		Price  float64 `json:"price"`
	}

	options := make(map[string][]wireVariant, len(byVendor))
	for vendor, variants := range byVendor {
		ws := make([]wireVariant, 0, len(variants))
		for _, v := range variants {
			ws = append(ws, wireVariant{Brand: v.Brand, Weight: v.Weight, Unit: v.Unit, Price: v.Price})
		}
		options[vendor] = ws
	}
	optionsText, _ := json.MarshalIndent(options, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Select the best vendor for %q.\n\n", productName)
	fmt.Fprintf(&b, "Available options:\n%s\n\n", optionsText)

	if requirement != "" {
		fmt.Fprintf(&b, `USER CONTEXT (Important for this selection):
- User's specific requirement: %q

TASK: Select the BEST option that matches the user's stated requirement above.
The user has explicitly asked for this, so prioritize matching their requirement.

`, requirement)
	}

	if hint != nil {
		fmt.Fprintf(&b, `QUANTITY STRATEGY (precomputed for the requested quantity):
- Strategy: %s (%s)
- Suggested pack: %s %v%s from %s at %.2f, total %.2f for the requested quantity

Prefer a selection consistent with this strategy unless the user context overrides it.

`, hint.Strategy, hint.Reason,
			hint.Chosen.Brand, hint.Chosen.Weight, hint.Chosen.Unit, hint.Chosen.Vendor,
			hint.Chosen.Price, hint.TotalPrice)
	}

	b.WriteString(`Recommend the vendor that provides best value and matches the requirement.
Consider: price, variety, brand options, user preference.

Return JSON:
{
    "selected_vendor": "vendor_name",
    "selected_variant": {
        "brand": "...",
        "weight": 0,
        "unit": "...",
        "price": 0.0
    },
    "reasoning": "why this vendor/variant was chosen",
    "confidence": 0.95
}`)

	return b.String()
}

// buildFeedbackPrompt renders the feedback-classification prompt against the
// current cart contents. cartProducts is the authoritative set of product
// names the model may target.
func buildFeedbackPrompt(userInput string, cartProducts []string) string {
	products, _ := json.Marshal(cartProducts)
	return fmt.Sprintf(`User said: %q

Products currently in the cart:
%s

Classify the user's intent into exactly one action:
- "modify": change an existing cart item (brand, pack size, quantity, or other requirement)
- "remove": take an item out of the cart
- "recompare": question or re-examine a past selection without changing the cart
- "add": add new items not currently in the cart
- "checkout": confirm and finalize the order
- "unrecognized": none of the above

Return JSON:
{
    "action": "modify|remove|recompare|add|checkout|unrecognized",
    "target_products": ["exact product names from the cart list above"],
    "requirement": "the user's stated requirement or question, if any",
    "new_items_text": "raw text naming new items, only for add",
    "response": "short conversational reply to the user"
}

Rules:
- target_products MUST only contain names from the cart list above
- For add, leave target_products empty and fill new_items_text
- For checkout, all other fields stay empty`, userInput, products)
}
