package session

import (
	"encoding/json"
	"time"

	"github.com/cartloop/cartloop/internal/cart"
	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/types"
)

// Snapshot is the checkpoint form of a State: everything needed to resume a
// session, minus the per-pass working data (variants, judgments), which is
// refetched on demand.
type Snapshot struct {
	State      *State    `json:"state"`
	Checkpoint string    `json:"checkpoint"`
	CapturedAt time.Time `json:"captured_at"`
}

// Checkpoint labels for the persistence log.
const (
	CheckpointAssembled = "cart_assembled"
	CheckpointFeedback  = "feedback_applied"
	CheckpointCheckout  = "checked_out"
)

// Capture serializes the state into a checkpoint payload.
func Capture(s *State, checkpoint string) ([]byte, error) {
	snap := Snapshot{
		State:      s,
		Checkpoint: checkpoint,
		CapturedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, types.WrapError(types.STORE_APPEND_FAILED, "marshal checkpoint", err)
	}
	return data, nil
}

// Restore rebuilds a State from a checkpoint payload. Working maps are
// reinitialized empty and the cart invariants are re-verified before the
// session is allowed to continue.
func Restore(data []byte) (*State, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "unmarshal checkpoint", err)
	}
	s := snap.State
	if s == nil {
		return nil, types.NewError(types.STORE_QUERY_FAILED, "checkpoint has no state")
	}

	s.Variants = make(map[string]*collector.Result)
	s.Judgments = make(map[string]*reasoning.Judgment)
	if s.Cart == nil {
		s.Cart = cart.New()
	}
	if err := s.Cart.Verify(); err != nil {
		return nil, err
	}
	return s, nil
}
