// Package retry provides a generic, classification-aware executor for external
// calls. Failures are classified as transient (worth retrying with exponential
// backoff) or permanent (fail fast); the final error preserves enough context
// to distinguish an exhausted retry sequence from a first-attempt permanent
// failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cartloop/cartloop/internal/types"
)

// Classification is the retry eligibility of a call outcome. Every failure is
// exactly one of the two; the classification is a first-class decision made by
// a Classifier, not a side effect of the error's dynamic type.
type Classification string

const (
	// Transient failures may succeed on retry: timeouts, connection resets,
	// vendor 5xx responses.
	Transient Classification = "transient"

	// Permanent failures will not succeed on retry: malformed input, 4xx
	// responses, validation failures.
	Permanent Classification = "permanent"
)

// Classifier maps a failure to its Classification.
type Classifier func(error) Classification

// ClassifyDefault classifies based on the Retryable flag carried by
// CartloopError; anything else is treated as permanent.
func ClassifyDefault(err error) Classification {
	var cerr *types.CartloopError
	if errors.As(err, &cerr) && cerr.Retryable {
		return Transient
	}
	return Permanent
}

// Policy configures retry behavior. It is a configuration value and is never
// mutated at runtime.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	// Multiplier is the factor by which the delay grows per attempt.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
	// Jitter randomizes each delay within [0.5, 1.5) of its nominal value.
	Jitter bool `json:"jitter" yaml:"jitter"`
}

// DefaultPolicy returns the standard policy for gateway calls:
// 3 attempts, 1s initial delay, doubling, capped at 32s, jittered.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     32 * time.Second,
		Jitter:       true,
	}
}

// Delay calculates the backoff delay after the given attempt (0-based):
// initial_delay × multiplier^attempt, capped at MaxDelay, optionally jittered.
func (p Policy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter {
		d = time.Duration(float64(d) * (0.5 + rand.Float64()))
	}
	return d
}

// Error is the terminal failure of a retry sequence. Attempts records how many
// attempts were made, and Classification whether the last failure was
// transient (retries exhausted) or permanent (failed fast).
type Error struct {
	Attempts       int
	Classification Classification
	Err            error
}

func (e *Error) Error() string {
	if e.Classification == Permanent {
		return fmt.Sprintf("permanent failure on attempt %d: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("gave up after %d transient failures: %v", e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err is a retry failure caused by running out of
// attempts against transient failures.
func IsExhausted(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Classification == Transient
}

// IsPermanent reports whether err is a retry failure caused by a permanent
// (non-retryable) error.
func IsPermanent(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Classification == Permanent
}

// Do executes op under the given policy. Attempts are strictly sequential: no
// overlapping retries are ever issued for the same call. On a transient
// failure, Do waits the backoff delay (respecting ctx cancellation) and
// retries; on a permanent failure, or when attempts are exhausted, it returns
// a *Error wrapping the last failure.
func Do[T any](ctx context.Context, policy Policy, classify Classifier, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if classify == nil {
		classify = ClassifyDefault
	}
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if classify(err) == Permanent {
			return zero, &Error{Attempts: attempt + 1, Classification: Permanent, Err: err}
		}

		// Last attempt: no point waiting.
		if attempt == attempts-1 {
			break
		}

		delay := policy.Delay(attempt)
		slog.Debug("retrying after transient failure",
			"attempt", attempt+1,
			"max_attempts", attempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, &Error{Attempts: attempt + 1, Classification: Transient, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	return zero, &Error{Attempts: attempts, Classification: Transient, Err: lastErr}
}
