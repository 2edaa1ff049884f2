// Package reasoning defines the opaque reasoning capability consumed by the
// orchestration core: structured judgments over variant sets, feedback
// classification against the live cart, and free-text item parsing. The core
// relies only on the declared output shapes and on failures being classifiable
// as transient or permanent.
package reasoning

import (
	"fmt"
	"strings"

	"github.com/cartloop/cartloop/internal/catalog"
)

// Judgment is the reasoning capability's chosen variant for one product, with
// a confidence score and free-text rationale. A judgment is consumed exactly
// once by the decision validator before it may become a cart entry.
type Judgment struct {
	ProductName string          `json:"product_name"`
	Vendor      string          `json:"selected_vendor"`
	Variant     catalog.Variant `json:"selected_variant"`
	Confidence  float64         `json:"confidence"`
	Rationale   string          `json:"reasoning"`
}

// Validate checks the judgment is structurally well-formed. Hard constraint
// checks (vendor validity, price, confidence floor) belong to the decision
// validator, not here.
func (j *Judgment) Validate() error {
	if j == nil {
		return fmt.Errorf("judgment is nil")
	}
	if strings.TrimSpace(j.Vendor) == "" {
		return fmt.Errorf("selected_vendor is required")
	}
	if strings.TrimSpace(j.Rationale) == "" {
		return fmt.Errorf("reasoning is required")
	}
	if j.Confidence < 0.0 || j.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %v", j.Confidence)
	}
	return nil
}

// Action is one of the closed set of feedback actions.
type Action string

const (
	ActionModify       Action = "modify"
	ActionRemove       Action = "remove"
	ActionRecompare    Action = "recompare"
	ActionAdd          Action = "add"
	ActionCheckout     Action = "checkout"
	ActionUnrecognized Action = "unrecognized"
)

// String returns the string representation of the Action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the Action is one of the defined constants.
func (a Action) IsValid() bool {
	switch a {
	case ActionModify, ActionRemove, ActionRecompare, ActionAdd, ActionCheckout, ActionUnrecognized:
		return true
	default:
		return false
	}
}

// Intent is the classification of one feedback utterance: exactly one action,
// the target product names drawn from the actual cart contents, and the
// parameters the action needs.
type Intent struct {
	Action Action `json:"action"`

	// Targets are canonical cart product names the feedback refers to.
	Targets []string `json:"target_products,omitempty"`

	// Requirement is the raw user requirement carried into re-reasoning for
	// modify ("organic", "a bigger pack") and the question for recompare.
	Requirement string `json:"requirement,omitempty"`

	// NewItemsText is the free text naming items to add, for the add action.
	NewItemsText string `json:"new_items_text,omitempty"`

	// Response is the assistant's conversational reply to surface to the
	// requester alongside the mutation outcome.
	Response string `json:"response,omitempty"`
}
