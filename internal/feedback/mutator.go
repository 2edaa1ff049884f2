package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cartloop/cartloop/internal/cart"
	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/retry"
	"github.com/cartloop/cartloop/internal/session"
	"github.com/cartloop/cartloop/internal/types"
)

// ItemRunner executes the single-item pipeline (collect variants, reason,
// validate) and returns the resulting cart entry. The orchestration engine
// implements it; the mutator stays free of the engine's wiring.
type ItemRunner interface {
	RunItem(ctx context.Context, s *session.State, item plan.RequestItem, requirement string) (*cart.Entry, error)
}

// Alternative is one vendor option in a recompare result.
type Alternative struct {
	Vendor       string  `json:"vendor"`
	Brand        string  `json:"brand"`
	PackWeight   float64 `json:"pack_weight"`
	PackUnit     string  `json:"pack_unit"`
	Price        float64 `json:"price"`
	PricePerUnit float64 `json:"price_per_unit"`
	// Delta is the alternative's normalized price minus the current
	// selection's; negative means the alternative is cheaper.
	Delta float64 `json:"delta"`
}

// Comparison is the structured recompare answer. It is a pure read: the cart
// entry it describes is untouched.
type Comparison struct {
	Product             string        `json:"product"`
	CurrentVendor       string        `json:"current_vendor"`
	CurrentPricePerUnit float64       `json:"current_price_per_unit"`
	Alternatives        []Alternative `json:"alternatives"`
}

// Outcome is the result of applying one feedback utterance.
type Outcome struct {
	Action     reasoning.Action
	Targets    []string
	Message    string
	Comparison *Comparison
	Order      *cart.OrderSummary
}

// Mutator applies classified feedback to the session state.
type Mutator struct {
	gateway   reasoning.Gateway
	collector *collector.Collector
	runner    ItemRunner
	policy    retry.Policy
	logger    *slog.Logger
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithPolicy sets the retry policy for reasoning calls.
func WithPolicy(policy retry.Policy) Option {
	return func(m *Mutator) { m.policy = policy }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mutator) { m.logger = logger }
}

// NewMutator creates a Mutator.
func NewMutator(gateway reasoning.Gateway, coll *collector.Collector, runner ItemRunner, opts ...Option) *Mutator {
	m := &Mutator{
		gateway:   gateway,
		collector: coll,
		runner:    runner,
		policy:    retry.DefaultPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "feedback")
	return m
}

// Apply classifies one feedback utterance and applies the matching mutation.
// The cart is mutated only on success: handlers work on a clone and the
// clone replaces the live cart as the final step. Any error leaves the state
// exactly as it was.
func (m *Mutator) Apply(ctx context.Context, s *session.State, input string) (*Outcome, error) {
	cartProducts := s.Cart.ProductNames()

	intent, err := retry.Do(ctx, m.policy, retry.ClassifyDefault,
		func(callCtx context.Context) (*reasoning.Intent, error) {
			return m.gateway.ClassifyFeedback(callCtx, input, cartProducts)
		})
	if err != nil {
		return nil, err
	}

	// The deterministic matcher over the cart's real keys supplements the
	// model's targets; a cart item clearly named in the text is always a
	// target even when the model missed it.
	targets := mergeTargets(intent.Targets, MatchTargets(input, cartProducts))

	// A named cart item plus an explicit quantity is a modification even
	// when the classifier punted.
	if intent.Action == reasoning.ActionUnrecognized && len(targets) > 0 {
		if _, _, ok := ExtractQuantity(input); ok {
			intent.Action = reasoning.ActionModify
		}
	}

	m.logger.Info("feedback classified",
		"action", intent.Action,
		"targets", targets)

	switch intent.Action {
	case reasoning.ActionModify:
		return m.applyModify(ctx, s, input, intent, targets)
	case reasoning.ActionRemove:
		return m.applyRemove(s, targets)
	case reasoning.ActionRecompare:
		return m.applyRecompare(ctx, s, intent, targets)
	case reasoning.ActionAdd:
		return m.applyAdd(ctx, s, input, intent)
	case reasoning.ActionCheckout:
		return m.applyCheckout(s)
	default:
		return m.applyUnrecognized(intent)
	}
}

// pendingDecision is an audit entry held back until the cloned cart is
// swapped in. A mutation that fails on a later target leaves no audit trace.
type pendingDecision struct {
	kind    string
	product string
	note    string
}

func recordAll(s *session.State, pending []pendingDecision) {
	for _, d := range pending {
		s.RecordDecision(d.kind, d.product, d.note)
	}
}

// applyModify re-runs the item pipeline for each target with the user's
// requirement as context, replacing only the targeted entries.
func (m *Mutator) applyModify(ctx context.Context, s *session.State, input string, intent *reasoning.Intent, targets []string) (*Outcome, error) {
	if len(targets) == 0 {
		return nil, types.NewError(types.FEEDBACK_AMBIGUOUS, "could not tell which cart item the modification refers to")
	}

	requirement := intent.Requirement
	if requirement == "" {
		requirement = input
	}
	qty, qtyUnit, hasQty := ExtractQuantity(input)

	clone := s.Cart.Clone()
	var pending []pendingDecision
	for _, target := range targets {
		existing, ok := clone.Get(target)
		if !ok {
			return nil, types.NewError(types.CART_ITEM_NOT_FOUND,
				fmt.Sprintf("product %q is not in the cart", target))
		}

		item := plan.RequestItem{Name: target, Quantity: existing.Quantity, Unit: existing.Unit}
		if hasQty {
			item.Quantity = qty
			item.Unit = qtyUnit
		}

		entry, err := m.runner.RunItem(ctx, s, item, requirement)
		if err != nil {
			return nil, err
		}
		clone.Upsert(entry)

		pending = append(pending, pendingDecision{"modify", target,
			fmt.Sprintf("replaced with %s %s from %s at %.2f", entry.Brand, target, entry.Vendor, entry.UnitPrice)})
	}

	s.Cart = clone
	recordAll(s, pending)
	return &Outcome{
		Action:  reasoning.ActionModify,
		Targets: targets,
		Message: fmt.Sprintf("Updated %s. Cart total is now %.2f.", strings.Join(displayNames(targets), ", "), s.Cart.AggregateTotal),
	}, nil
}

// applyRemove deletes the targeted entries. A missing target is an
// ItemNotFound failure and nothing is removed.
func (m *Mutator) applyRemove(s *session.State, targets []string) (*Outcome, error) {
	if len(targets) == 0 {
		return nil, types.NewError(types.CART_ITEM_NOT_FOUND, "no cart item matches the removal request")
	}

	clone := s.Cart.Clone()
	var pending []pendingDecision
	for _, target := range targets {
		if err := clone.Remove(target); err != nil {
			return nil, err
		}
		pending = append(pending, pendingDecision{"remove", target, "removed from cart"})
	}

	s.Cart = clone
	recordAll(s, pending)
	return &Outcome{
		Action:  reasoning.ActionRemove,
		Targets: targets,
		Message: fmt.Sprintf("Removed %s. Cart total is now %.2f.", strings.Join(displayNames(targets), ", "), s.Cart.AggregateTotal),
	}, nil
}

// applyRecompare re-fetches variants for the targeted product and reports
// the price delta against every alternative without touching the cart.
func (m *Mutator) applyRecompare(ctx context.Context, s *session.State, intent *reasoning.Intent, targets []string) (*Outcome, error) {
	if len(targets) == 0 {
		return nil, types.NewError(types.FEEDBACK_AMBIGUOUS, "could not tell which cart item the comparison refers to")
	}
	target := targets[0]

	entry, ok := s.Cart.Get(target)
	if !ok {
		return nil, types.NewError(types.CART_ITEM_NOT_FOUND,
			fmt.Sprintf("product %q is not in the cart", target))
	}

	result, err := m.collector.Collect(ctx, target)
	if err != nil {
		return nil, err
	}

	currentRate := entryRate(entry)
	comparison := &Comparison{
		Product:             target,
		CurrentVendor:       entry.Vendor,
		CurrentPricePerUnit: currentRate,
	}
	for _, v := range result.Ranked {
		rate := collector.PricePerBaseUnit(v)
		comparison.Alternatives = append(comparison.Alternatives, Alternative{
			Vendor:       v.Vendor,
			Brand:        v.Brand,
			PackWeight:   v.Weight,
			PackUnit:     v.Unit,
			Price:        v.Price,
			PricePerUnit: rate,
			Delta:        rate - currentRate,
		})
	}

	s.RecordDecision("recompare", target,
		fmt.Sprintf("compared %d alternatives against %s", len(comparison.Alternatives), entry.Vendor))

	return &Outcome{
		Action:     reasoning.ActionRecompare,
		Targets:    []string{target},
		Message:    renderComparison(comparison, intent.Response),
		Comparison: comparison,
	}, nil
}

// applyAdd parses new items out of the feedback and runs the full pipeline
// for each, merging the results into the cart under the uniqueness
// invariant.
func (m *Mutator) applyAdd(ctx context.Context, s *session.State, input string, intent *reasoning.Intent) (*Outcome, error) {
	text := intent.NewItemsText
	if text == "" {
		text = input
	}

	items, err := retry.Do(ctx, m.policy, retry.ClassifyDefault,
		func(callCtx context.Context) ([]plan.RequestItem, error) {
			return m.gateway.ParseItems(callCtx, text)
		})
	if err != nil {
		return nil, err
	}

	clone := s.Cart.Clone()
	var added []string
	var pending []pendingDecision
	for _, item := range items {
		entry, err := m.runner.RunItem(ctx, s, item, "")
		if err != nil {
			return nil, err
		}
		clone.Upsert(entry)
		added = append(added, item.Name)

		pending = append(pending, pendingDecision{"add", item.Name,
			fmt.Sprintf("added %s from %s at %.2f", entry.Brand, entry.Vendor, entry.UnitPrice)})
	}

	s.Cart = clone
	recordAll(s, pending)
	return &Outcome{
		Action:  reasoning.ActionAdd,
		Targets: added,
		Message: fmt.Sprintf("Added %s. Cart total is now %.2f.", strings.Join(displayNames(added), ", "), s.Cart.AggregateTotal),
	}, nil
}

// applyCheckout finalizes the cart into an immutable order summary.
func (m *Mutator) applyCheckout(s *session.State) (*Outcome, error) {
	summary, err := cart.Checkout(s.Cart, s.SessionID)
	if err != nil {
		return nil, err
	}

	s.Order = summary
	s.RecordDecision("checkout", "", summary.String())

	return &Outcome{
		Action:  reasoning.ActionCheckout,
		Message: fmt.Sprintf("Order placed: %s.", summary),
		Order:   summary,
	}, nil
}

// applyUnrecognized reports the ambiguity without touching any state.
func (m *Mutator) applyUnrecognized(intent *reasoning.Intent) (*Outcome, error) {
	message := intent.Response
	if message == "" {
		message = "I couldn't map that to a cart action. You can modify, remove, add, compare items, or say \"confirm\" to check out."
	}
	return &Outcome{
		Action:  reasoning.ActionUnrecognized,
		Message: message,
	}, nil
}

// entryRate normalizes a cart entry's pack price to the base weight unit.
func entryRate(e *cart.Entry) float64 {
	weight := e.PackWeight
	if e.PackUnit == "g" {
		weight = e.PackWeight / 1000
	}
	if weight <= 0 {
		return e.UnitPrice
	}
	return e.UnitPrice / weight
}

// mergeTargets unions the model's targets with the deterministic matches,
// preserving first-seen order.
func mergeTargets(modelTargets, matched []string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, t := range append(append([]string{}, modelTargets...), matched...) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

func displayNames(products []string) []string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = catalog.DisplayName(p)
	}
	return names
}

func renderComparison(c *Comparison, modelResponse string) string {
	var b strings.Builder
	if modelResponse != "" {
		b.WriteString(modelResponse)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "%s is currently from %s at %.2f per unit.", catalog.DisplayName(c.Product), c.CurrentVendor, c.CurrentPricePerUnit)
	for _, alt := range c.Alternatives {
		if alt.Vendor == c.CurrentVendor {
			continue
		}
		switch {
		case alt.Delta < 0:
			fmt.Fprintf(&b, " %s (%s) would be %.2f cheaper per unit.", alt.Vendor, alt.Brand, -alt.Delta)
		case alt.Delta > 0:
			fmt.Fprintf(&b, " %s (%s) costs %.2f more per unit.", alt.Vendor, alt.Brand, alt.Delta)
		default:
			fmt.Fprintf(&b, " %s (%s) matches the current price.", alt.Vendor, alt.Brand)
		}
	}
	return b.String()
}
