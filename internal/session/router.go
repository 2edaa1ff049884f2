package session

import "strings"

// NextStep identifies what the engine should do next with a session.
type NextStep string

const (
	// StepStop yields control: the session is terminal or waiting for input.
	StepStop NextStep = "stop"
	// StepCheckout finalizes the cart into an order.
	StepCheckout NextStep = "checkout"
	// StepProcessFeedback classifies and applies the pending utterance.
	StepProcessFeedback NextStep = "process_feedback"
	// StepContinuePlan runs the fetch/reason/validate/assemble pipeline for
	// the next pending plan step.
	StepContinuePlan NextStep = "continue_plan"
	// StepAwaitConfirmation issues the confirmation prompt and suspends.
	StepAwaitConfirmation NextStep = "await_confirmation"
	// StepHaltInvariant is the defensive terminal case: no rule matched.
	// The engine logs it as an invariant violation and marks the session
	// failed.
	StepHaltInvariant NextStep = "halt_invariant"
)

// checkoutPhrases are the normalized affirmative inputs that move the
// session straight to checkout.
var checkoutPhrases = map[string]struct{}{
	"confirm":  {},
	"yes":      {},
	"checkout": {},
	"proceed":  {},
}

// IsCheckoutPhrase reports whether the input normalizes to an affirmative
// checkout phrase. Normalization lowercases and strips surrounding space and
// trailing punctuation.
func IsCheckoutPhrase(input string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.TrimRight(normalized, ".!?")
	normalized = strings.TrimSpace(normalized)
	_, ok := checkoutPhrases[normalized]
	return ok
}

// Route is the pure routing function: identical states always produce the
// same next step. Rules are evaluated in order; the first match wins.
func Route(s *State) NextStep {
	// 1. Terminal sessions make no further progress.
	if s.Status.IsTerminal() {
		return StepStop
	}

	// 2-3. Suspended sessions either keep waiting or act on new input.
	if s.AwaitingInput {
		if s.UserInput == "" {
			return StepStop
		}
		if IsCheckoutPhrase(s.UserInput) {
			return StepCheckout
		}
		return StepProcessFeedback
	}

	// 4. Work through the active plan.
	if s.Plan != nil && s.Plan.NextPending() != nil {
		return StepContinuePlan
	}

	// 5. Plan exhausted: request confirmation exactly once.
	if s.Plan != nil && !s.ConfirmationRequested {
		return StepAwaitConfirmation
	}

	// 6. Unreachable under rules 1-5.
	return StepHaltInvariant
}
