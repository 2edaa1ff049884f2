// Package plan models the execution plan derived from a parsed shopping
// request: one abstract step per requested item, each carrying only a status.
// Control flow lives in the router, never in the plan itself.
package plan

import (
	"fmt"

	"github.com/cartloop/cartloop/internal/types"
)

// RequestItem is one normalized line of the shopping request. Immutable once
// parsed.
type RequestItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// String returns e.g. "5kg basmati_rice".
func (i RequestItem) String() string {
	return fmt.Sprintf("%v%s %s", i.Quantity, i.Unit, i.Name)
}

// StepStatus is the lifecycle state of a plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Step references one RequestItem and tracks its progress through the
// collect → reason → validate → assemble pipeline. Steps are owned exclusively
// by the active plan and are discarded with it.
type Step struct {
	ID     int        `json:"id"`
	Item   RequestItem `json:"item"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Result string     `json:"result,omitempty"`
}

// Fail marks the step failed with a reason.
func (s *Step) Fail(reason string) {
	s.Status = StepFailed
	s.Error = reason
}

// Complete marks the step completed with a result summary.
func (s *Step) Complete(result string) {
	s.Status = StepCompleted
	s.Result = result
}

// Plan is the ordered set of steps for one session's request.
type Plan struct {
	ID        types.ID `json:"id"`
	SessionID string   `json:"session_id"`
	Goal      string   `json:"goal"`
	Steps     []*Step  `json:"steps"`
}

// Build creates a plan with one pending step per request item.
func Build(sessionID string, items []RequestItem) *Plan {
	steps := make([]*Step, 0, len(items))
	for i, item := range items {
		steps = append(steps, &Step{
			ID:     i + 1,
			Item:   item,
			Status: StepPending,
		})
	}
	return &Plan{
		ID:        types.NewID(),
		SessionID: sessionID,
		Goal:      "build optimized shopping cart",
		Steps:     steps,
	}
}

// NextPending returns the first pending step, or nil when none remain.
func (p *Plan) NextPending() *Step {
	if p == nil {
		return nil
	}
	for _, s := range p.Steps {
		if s.Status == StepPending {
			return s
		}
	}
	return nil
}

// Done reports whether every step has reached a terminal status.
func (p *Plan) Done() bool {
	if p == nil {
		return true
	}
	for _, s := range p.Steps {
		if s.Status == StepPending || s.Status == StepInProgress {
			return false
		}
	}
	return true
}

// Find returns the step for the given product name, or nil.
func (p *Plan) Find(name string) *Step {
	if p == nil {
		return nil
	}
	for _, s := range p.Steps {
		if s.Item.Name == name {
			return s
		}
	}
	return nil
}

// CompletedCount returns how many steps completed successfully.
func (p *Plan) CompletedCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			n++
		}
	}
	return n
}

// FailedCount returns how many steps failed.
func (p *Plan) FailedCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.Status == StepFailed {
			n++
		}
	}
	return n
}
