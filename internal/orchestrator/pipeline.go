package orchestrator

import (
	"context"
	"errors"
	"fmt"
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

// executePlanStep runs the fetch/reason/validate/assemble pipeline for the
// next pending plan step. A failed step is recorded on the plan and reported
// as a message; sibling steps proceed independently.
func (e *Engine) executePlanStep(ctx context.Context, s *session.State) {
	step := s.Plan.NextPending()
	if step == nil {
		return
	}
	step.Status = plan.StepInProgress

	entry, err := e.RunItem(ctx, s, step.Item, "")
	if err != nil {
		step.Fail(err.Error())
		e.logger.Warn("plan step failed",
			"session_id", s.SessionID,
			"product", step.Item.Name,
			"error", err)
		s.AddMessage(fmt.Sprintf("Couldn't source %s: %s", catalog.DisplayName(step.Item.Name), failureSummary(err)))
		return
	}

	s.SetStatus(session.StatusAssembling)
	s.Cart.Upsert(entry)
	step.Complete(fmt.Sprintf("%s from %s at %.2f", entry.Brand, entry.Vendor, entry.UnitPrice))

	e.logger.Info("plan step completed",
		"session_id", s.SessionID,
		"product", step.Item.Name,
		"vendor", entry.Vendor,
		"line_total", entry.LineTotal)
}

// RunItem executes the single-item pipeline: collect variants across
// vendors, reason over them (re-invoking with the rejection reason appended,
// up to the configured bound), validate, and build the cart entry. It also
// backs the feedback mutator's modify and add flows.
func (e *Engine) RunItem(ctx context.Context, s *session.State, item plan.RequestItem, requirement string) (*cart.Entry, error) {
	s.SetStatus(session.StatusCollecting)
	result, err := e.collector.Collect(ctx, item.Name)
	if err != nil {
		return nil, err
	}
	s.Variants[item.Name] = result

	hint := quantityHint(result.Ranked, item)

	s.SetStatus(session.StatusReasoning)
	req := requirement
	for attempt := 0; ; attempt++ {
		judgment, err := retry.Do(ctx, e.policy, retry.ClassifyDefault,
			func(callCtx context.Context) (*reasoning.Judgment, error) {
				return e.reasoner.SelectVariant(callCtx, item.Name, result.ByVendor, hint, req)
			})
		if err != nil {
			return nil, err
		}

		s.SetStatus(session.StatusValidating)
		if verr := e.validator.Validate(judgment, result.QueriedVendors); verr != nil {
			if attempt >= e.maxReReasoning {
				e.logger.Warn("re-reasoning exhausted",
					"session_id", s.SessionID,
					"product", item.Name,
					"attempts", attempt+1)
				return nil, verr
			}
			// Feed the rejection back as additional context and reason
			// again.
			req = appendRequirement(requirement, verr)
			s.SetStatus(session.StatusReasoning)
			continue
		}

		s.Judgments[item.Name] = judgment
		s.RecordDecision("selection", item.Name,
			fmt.Sprintf("chose %s from %s at %.2f (confidence %.2f): %s",
				judgment.Variant.Brand, judgment.Vendor, judgment.Variant.Price,
				judgment.Confidence, judgment.Rationale))

		return cart.EntryFromJudgment(judgment, item), nil
	}
}

// quantityHint precomputes the pack-size strategy (one exact pack vs
// aggregating at the best unit rate) for a weight-based request. Count-based
// units carry no pack arithmetic and get no hint.
func quantityHint(ranked []catalog.Variant, item plan.RequestItem) *collector.Selection {
	qtyKg := item.Quantity
	switch item.Unit {
	case "kg":
	case "g":
		qtyKg = item.Quantity / 1000
	default:
		return nil
	}

	sel, err := collector.SelectByQuantity(ranked, qtyKg, 0)
	if err != nil {
		return nil
	}
	return sel
}

// requestConfirmation renders the cart, suspends the session, and writes the
// post-assembly checkpoint.
func (e *Engine) requestConfirmation(ctx context.Context, s *session.State) {
	s.SetStatus(session.StatusAwaitingConfirmation)
	s.ConfirmationRequested = true
	s.AwaitingInput = true

	s.AddMessage(renderCart(s))
	s.AddMessage(`Reply "confirm" to place the order, or tell me what to change.`)

	e.checkpoint(ctx, s, session.CheckpointAssembled)
}

// checkout finalizes the cart. An empty cart keeps the session suspended
// instead of terminating it.
func (e *Engine) checkout(ctx context.Context, s *session.State) {
	s.ConsumeInput()

	summary, err := cart.Checkout(s.Cart, s.SessionID)
	if err != nil {
		if types.CodeOf(err) == types.CART_EMPTY {
			s.AddMessage("Your cart is empty, there is nothing to check out. Tell me what to add.")
			return
		}
		e.failSession(s, err)
		return
	}

	s.Order = summary
	s.AwaitingInput = false
	s.SetStatus(session.StatusCheckedOut)
	s.RecordDecision("checkout", "", summary.String())
	s.AddMessage(fmt.Sprintf("Order placed: %s.", summary))

	e.checkpoint(ctx, s, session.CheckpointCheckout)
	e.logger.Info("session checked out",
		"session_id", s.SessionID,
		"total", summary.Total,
		"items", len(summary.Entries))
}

// processFeedback applies one utterance through the mutator. A failed
// mutation leaves the cart in its last-known-good state and reports the
// failure as a message; the session returns to awaiting input either way.
func (e *Engine) processFeedback(ctx context.Context, s *session.State) {
	s.SetStatus(session.StatusProcessingFeedback)
	input := s.ConsumeInput()

	outcome, err := e.mutator.Apply(ctx, s, input)
	if err != nil {
		s.AddMessage(fmt.Sprintf("I couldn't apply that change: %s. Your cart is unchanged.", failureSummary(err)))
		s.SetStatus(session.StatusAwaitingConfirmation)
		s.AwaitingInput = true
		return
	}

	s.AddMessage(outcome.Message)

	if outcome.Order != nil {
		s.AwaitingInput = false
		s.SetStatus(session.StatusCheckedOut)
		e.checkpoint(ctx, s, session.CheckpointCheckout)
		return
	}

	s.SetStatus(session.StatusAwaitingConfirmation)
	s.AwaitingInput = true
	if mutated(outcome.Action) {
		s.AddMessage(renderCart(s))
		e.checkpoint(ctx, s, session.CheckpointFeedback)
	}
}

// haltInvariant handles the router's defensive terminal case.
func (e *Engine) haltInvariant(s *session.State) error {
	err := types.NewError(types.INVARIANT_VIOLATION,
		fmt.Sprintf("router found no applicable rule in status %s", s.Status))
	e.failSession(s, err)
	return err
}

// failSession marks the session failed rather than silently continuing.
func (e *Engine) failSession(s *session.State, err error) {
	e.logger.Error("session failed",
		"session_id", s.SessionID,
		"status", s.Status,
		"error", err)
	s.AwaitingInput = false
	s.SetStatus(session.StatusFailed)
	s.AddMessage(fmt.Sprintf("The session hit an unrecoverable problem: %s", failureSummary(err)))
}

func mutated(action reasoning.Action) bool {
	switch action {
	case reasoning.ActionModify, reasoning.ActionRemove, reasoning.ActionAdd:
		return true
	default:
		return false
	}
}

// appendRequirement folds a validation rejection into the requirement text
// for the next reasoning attempt.
func appendRequirement(requirement string, rejection error) string {
	reason := failureSummary(rejection)
	if requirement == "" {
		return "Your previous selection was rejected: " + reason + ". Choose again."
	}
	return requirement + ". Your previous selection was rejected: " + reason + ". Choose again."
}

// failureSummary strips the error down to its message for caller-facing
// text.
func failureSummary(err error) string {
	var cerr *types.CartloopError
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return err.Error()
}

func describePlan(items []plan.RequestItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return fmt.Sprintf("Planned %d items: %s.", len(items), strings.Join(parts, ", "))
}

func renderCart(s *session.State) string {
	if s.Cart.IsEmpty() {
		return "Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for _, entry := range s.Cart.Entries {
		fmt.Fprintf(&b, "  - %s: %s from %s, %v %s at %.2f = %.2f\n",
			catalog.DisplayName(entry.ProductName), entry.Brand, entry.Vendor,
			entry.Quantity, entry.Unit, entry.UnitPrice, entry.LineTotal)
	}
	fmt.Fprintf(&b, "Total: %.2f (%v units)", s.Cart.AggregateTotal, s.Cart.AggregateCount)
	return b.String()
}
