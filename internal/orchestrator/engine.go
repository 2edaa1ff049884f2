// Package orchestrator drives a shopping session through the routing loop:
// plan, collect, reason, validate, assemble, await confirmation, process
// feedback, check out. The engine owns the wiring; the router owns the
// control flow decisions.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cartloop/cartloop/internal/collector"
	"github.com/cartloop/cartloop/internal/feedback"
	"github.com/cartloop/cartloop/internal/plan"
	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/retry"
	"github.com/cartloop/cartloop/internal/session"
	"github.com/cartloop/cartloop/internal/store"
	"github.com/cartloop/cartloop/internal/types"
	"github.com/cartloop/cartloop/internal/validator"
)

// DefaultMaxReReasoning bounds how many times reasoning is re-invoked after
// a validation rejection before the item is marked failed.
const DefaultMaxReReasoning = 2

// Engine advances one session at a time. It is not safe for concurrent use
// on the same session; concurrency lives inside the collector only.
type Engine struct {
	reasoner       reasoning.Gateway
	collector      *collector.Collector
	validator      *validator.Validator
	mutator        *feedback.Mutator
	checkpoints    *store.Store
	policy         retry.Policy
	maxReReasoning int
	logger         *slog.Logger
	tracer         trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithValidator overrides the decision validator.
func WithValidator(v *validator.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithStore enables checkpointing to the given store.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.checkpoints = s }
}

// WithPolicy sets the retry policy for reasoning calls.
func WithPolicy(policy retry.Policy) Option {
	return func(e *Engine) { e.policy = policy }
}

// WithMaxReReasoning sets the re-reasoning bound after validation rejection.
func WithMaxReReasoning(n int) Option {
	return func(e *Engine) { e.maxReReasoning = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer sets the tracer for session spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// New creates an Engine over the reasoning gateway and variant collector.
func New(reasoner reasoning.Gateway, coll *collector.Collector, opts ...Option) *Engine {
	e := &Engine{
		reasoner:       reasoner,
		collector:      coll,
		validator:      validator.New(),
		policy:         retry.DefaultPolicy(),
		maxReReasoning: DefaultMaxReReasoning,
		logger:         slog.Default(),
		tracer:         noop.NewTracerProvider().Tracer("orchestrator"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "orchestrator")
	e.mutator = feedback.NewMutator(reasoner, coll, e,
		feedback.WithPolicy(e.policy),
		feedback.WithLogger(e.logger))
	return e
}

// Start creates a new session from a free-text shopping request. The request
// is parsed into plan items; the session is left in PLANNING, ready for Run.
func (e *Engine) Start(ctx context.Context, request string) (*session.State, error) {
	items, err := retry.Do(ctx, e.policy, retry.ClassifyDefault,
		func(callCtx context.Context) ([]plan.RequestItem, error) {
			return e.reasoner.ParseItems(callCtx, request)
		})
	if err != nil {
		return nil, err
	}
	return e.StartWithItems(request, items), nil
}

// StartWithItems creates a session from pre-parsed items.
func (e *Engine) StartWithItems(goal string, items []plan.RequestItem) *session.State {
	s := session.NewState(goal)
	s.Plan = plan.Build(s.SessionID, items)

	e.logger.Info("session started",
		"session_id", s.SessionID,
		"items", len(items))
	s.AddMessage(describePlan(items))
	return s
}

// Resume rebuilds a session from its latest checkpoint.
func (e *Engine) Resume(ctx context.Context, sessionID string) (*session.State, error) {
	if e.checkpoints == nil {
		return nil, types.NewError(types.STORE_NOT_FOUND, "no checkpoint store configured")
	}
	cp, err := e.checkpoints.Latest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s, err := session.Restore(cp.Payload)
	if err != nil {
		return nil, err
	}

	e.logger.Info("session resumed",
		"session_id", s.SessionID,
		"checkpoint", cp.Checkpoint,
		"status", s.Status)
	return s, nil
}

// Submit records a caller utterance and advances the session. A session that
// already reached a terminal state accepts no further input.
func (e *Engine) Submit(ctx context.Context, s *session.State, input string) error {
	if s.Status.IsTerminal() {
		return types.NewError(types.SESSION_TERMINAL,
			fmt.Sprintf("session %s is %s and accepts no further input", s.SessionID, s.Status))
	}
	s.ReceiveInput(input)
	return e.Run(ctx, s)
}

// Run advances the session until the router yields: terminal state, or
// suspended waiting for caller input.
func (e *Engine) Run(ctx context.Context, s *session.State) error {
	ctx, span := e.tracer.Start(ctx, "session.run",
		trace.WithAttributes(attribute.String("session_id", s.SessionID)))
	defer span.End()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := session.Route(s)
		e.logger.Debug("routed",
			"session_id", s.SessionID,
			"status", s.Status,
			"next", string(next))

		switch next {
		case session.StepStop:
			return nil

		case session.StepContinuePlan:
			e.executePlanStep(ctx, s)

		case session.StepAwaitConfirmation:
			e.requestConfirmation(ctx, s)

		case session.StepCheckout:
			e.checkout(ctx, s)

		case session.StepProcessFeedback:
			e.processFeedback(ctx, s)

		case session.StepHaltInvariant:
			return e.haltInvariant(s)
		}
	}
}

// checkpoint persists the state if a store is configured. A persistence
// failure is logged but never kills a live session.
func (e *Engine) checkpoint(ctx context.Context, s *session.State, label string) {
	if e.checkpoints == nil {
		return
	}
	data, err := session.Capture(s, label)
	if err != nil {
		e.logger.Error("checkpoint capture failed",
			"session_id", s.SessionID, "checkpoint", label, "error", err)
		return
	}
	if err := e.checkpoints.Append(ctx, s.SessionID, label, data); err != nil {
		e.logger.Error("checkpoint append failed",
			"session_id", s.SessionID, "checkpoint", label, "error", err)
	}
}
