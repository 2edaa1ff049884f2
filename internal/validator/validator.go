// Package validator gates reasoning judgments behind deterministic checks.
// It never overrides a judgment: it only accepts or rejects.
package validator

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cartloop/cartloop/internal/reasoning"
	"github.com/cartloop/cartloop/internal/types"
)

// DefaultConfidenceFloor is the minimum confidence a judgment needs to pass.
const DefaultConfidenceFloor = 0.6

// Validator checks accepted judgments against hard constraints. It makes no
// external calls and holds no mutable state.
type Validator struct {
	confidenceFloor float64
	logger          *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithConfidenceFloor overrides the minimum accepted confidence.
func WithConfidenceFloor(floor float64) Option {
	return func(v *Validator) { v.confidenceFloor = floor }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// New creates a Validator with the default confidence floor.
func New(opts ...Option) *Validator {
	v := &Validator{
		confidenceFloor: DefaultConfidenceFloor,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "validator")
	return v
}

// Validate runs the checks in order and short-circuits on the first failure:
//  1. the chosen vendor is among the vendors actually queried
//  2. the chosen variant's price is strictly positive
//  3. confidence is at or above the floor
//
// A nil return is acceptance. Rejections carry VALIDATION_REJECTED with the
// specific reason; callers append that reason to the requirement text when
// re-invoking reasoning.
func (v *Validator) Validate(j *reasoning.Judgment, queriedVendors []string) error {
	if j == nil {
		return reject("judgment is missing")
	}

	if !slices.Contains(queriedVendors, j.Vendor) {
		err := reject(fmt.Sprintf("vendor %q was not among the queried vendors %v", j.Vendor, queriedVendors))
		v.logRejection(j, err)
		return err
	}

	if j.Variant.Price <= 0 {
		err := reject(fmt.Sprintf("variant price %.2f is not positive", j.Variant.Price))
		v.logRejection(j, err)
		return err
	}

	if j.Confidence < v.confidenceFloor {
		err := reject(fmt.Sprintf("confidence %.2f is below the floor %.2f", j.Confidence, v.confidenceFloor))
		v.logRejection(j, err)
		return err
	}

	v.logger.Debug("judgment accepted",
		"product", j.ProductName,
		"vendor", j.Vendor,
		"confidence", j.Confidence)
	return nil
}

func (v *Validator) logRejection(j *reasoning.Judgment, err error) {
	v.logger.Warn("judgment rejected",
		"product", j.ProductName,
		"vendor", j.Vendor,
		"reason", err)
}

func reject(reason string) error {
	return types.NewError(types.VALIDATION_REJECTED, reason)
}
