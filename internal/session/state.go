// Package session holds the orchestration state threaded through every step
// of a shopping session, and the router that decides what happens next.
package session

import (
	"time"

	"github.com/cartloop/cartloop/internal/cart"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/types"
)

// Status is the session's position in the state machine. All non-terminal
// states may be revisited via the feedback loop.
type Status string

const (
	StatusPlanning             Status = "PLANNING"
	StatusCollecting           Status = "COLLECTING"
	StatusReasoning            Status = "REASONING"
	StatusValidating           Status = "VALIDATING"
	StatusAssembling           Status = "ASSEMBLING"
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusProcessingFeedback   Status = "PROCESSING_FEEDBACK"
	StatusCheckedOut           Status = "CHECKED_OUT"
	StatusFailed               Status = "FAILED"
)

// IsTerminal reports whether the session can make no further progress.
func (s Status) IsTerminal() bool {
	return s == StatusCheckedOut || s == StatusFailed
}

// Message is one entry of the caller-facing message log.
type Message struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Decision is one entry of the audit log consulted by recompare.
type Decision struct {
	Kind    string    `json:"kind"`
	Product string    `json:"product,omitempty"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

// State is the single mutable record for one session. It is exclusively
// owned by its session: no two sessions share a State, and no two steps of
// the same session run concurrently.
type State struct {
	SessionID string     `json:"session_id"`
	Status    Status     `json:"status"`
	Goal      string     `json:"goal"`
	Plan      *plan.Plan `json:"plan,omitempty"`

	// Variants and Judgments are per-product working data for the active
	// plan pass. They are rebuilt on demand and excluded from checkpoints.
	Variants  map[string]*collector.Result   `json:"-"`
	Judgments map[string]*reasoning.Judgment `json:"-"`

	Cart *cart.Cart `json:"cart"`

	// AwaitingInput is true while the session is suspended waiting for the
	// caller; UserInput holds the latest utterance not yet consumed.
	AwaitingInput bool   `json:"awaiting_input"`
	UserInput     string `json:"user_input,omitempty"`

	// ConfirmationRequested is set once the confirmation prompt has been
	// issued for the current cart, so the router does not re-prompt.
	ConfirmationRequested bool `json:"confirmation_requested"`

	Messages  []Message  `json:"messages"`
	Decisions []Decision `json:"decisions"`

	Order *cart.OrderSummary `json:"order,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a fresh session in PLANNING with an empty cart.
func NewState(goal string) *State {
	now := time.Now().UTC()
	return &State{
		SessionID: types.NewID().String(),
		Status:    StatusPlanning,
		Goal:      goal,
		Variants:  make(map[string]*collector.Result),
		Judgments: make(map[string]*reasoning.Judgment),
		Cart:      cart.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a caller-facing message.
func (s *State) AddMessage(text string) {
	s.Messages = append(s.Messages, Message{Text: text, At: time.Now().UTC()})
	s.UpdatedAt = time.Now().UTC()
}

// RecordDecision appends an audit log entry.
func (s *State) RecordDecision(kind, product, summary string) {
	s.Decisions = append(s.Decisions, Decision{
		Kind:    kind,
		Product: product,
		Summary: summary,
		At:      time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}

// SetStatus moves the state machine and stamps the update time.
func (s *State) SetStatus(status Status) {
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
}

// ReceiveInput records a new caller utterance for the router to consume.
func (s *State) ReceiveInput(input string) {
	s.UserInput = input
	s.UpdatedAt = time.Now().UTC()
}

// ConsumeInput clears the pending utterance once a step has acted on it.
func (s *State) ConsumeInput() string {
	input := s.UserInput
	s.UserInput = ""
	return input
}
