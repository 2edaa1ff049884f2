// Package collector fans out catalog searches across vendors and produces a
// deterministically ranked variant set for the reasoning step.
package collector

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/retry"
	"github.com/cartloop/cartloop/internal/types"
)

// Result is the outcome of one collection pass for a single product.
type Result struct {
	// Ranked holds all surviving variants ordered by ascending price per
	// base unit, ties broken by vendor name.
	Ranked []catalog.Variant

	// ByVendor groups the same variants by vendor for the reasoning prompt.
	ByVendor map[string][]catalog.Variant

	// QueriedVendors are the vendors whose search completed successfully,
	// including those that returned zero variants. The decision validator
	// checks judged vendors against this set.
	QueriedVendors []string

	// FailedVendors maps each vendor whose search failed (after retries) to
	// its final error.
	FailedVendors map[string]error
}

// Collector performs concurrent per-vendor variant collection. Each vendor
// call is wrapped individually by the retry executor so one vendor's
// exhaustion never blocks the others.
type Collector struct {
	gateway  catalog.Gateway
	vendors  []string
	policy   retry.Policy
	classify retry.Classifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Collector.
type Option func(*Collector)

// WithVendors overrides the vendor set to query.
func WithVendors(vendors []string) Option {
	return func(c *Collector) { c.vendors = vendors }
}

// WithPolicy sets the retry policy applied to each vendor call.
func WithPolicy(policy retry.Policy) Option {
	return func(c *Collector) { c.policy = policy }
}

// WithClassifier sets the failure classifier for vendor calls.
func WithClassifier(classify retry.Classifier) Option {
	return func(c *Collector) { c.classify = classify }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithTracer sets the tracer for collection spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Collector) { c.tracer = tracer }
}

// New creates a Collector over the given catalog gateway.
func New(gateway catalog.Gateway, opts ...Option) *Collector {
	c := &Collector{
		gateway:  gateway,
		vendors:  catalog.DefaultVendors,
		policy:   retry.DefaultPolicy(),
		classify: retry.ClassifyDefault,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "collector")
	return c
}

// Collect queries every vendor concurrently for productName and returns the
// joined, ranked result. All per-vendor results are collected before ranking;
// there is no partial ranking on first-arriving vendors.
//
// A vendor whose call fails permanently (or exhausts retries) is recorded in
// FailedVendors and excluded from QueriedVendors. Only when no vendor returns
// any variant does Collect fail, with CATALOG_NO_VARIANTS; the caller marks
// the owning plan step failed without aborting sibling steps.
func (c *Collector) Collect(ctx context.Context, productName string) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "collector.collect",
		trace.WithAttributes(attribute.String("product", productName)))
	defer span.End()

	type vendorOutcome struct {
		variants []catalog.Variant
		err      error
	}
	outcomes := make([]vendorOutcome, len(c.vendors))

	g, gctx := errgroup.WithContext(ctx)
	for i, vendor := range c.vendors {
		g.Go(func() error {
			variants, err := retry.Do(gctx, c.policy, c.classify,
				func(callCtx context.Context) ([]catalog.Variant, error) {
					return c.gateway.Search(callCtx, vendor, productName)
				})
			outcomes[i] = vendorOutcome{variants: variants, err: err}

			// Vendor failures are recorded, not propagated: sibling
			// vendors keep running.
			return nil
		})
	}
	// Goroutines never return errors; Wait only observes them all finishing.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		ByVendor:      make(map[string][]catalog.Variant),
		FailedVendors: make(map[string]error),
	}
	for i, vendor := range c.vendors {
		outcome := outcomes[i]
		if outcome.err != nil {
			c.logger.Warn("vendor search failed",
				"vendor", vendor,
				"product", productName,
				"error", outcome.err)
			result.FailedVendors[vendor] = outcome.err
			continue
		}
		result.QueriedVendors = append(result.QueriedVendors, vendor)
		if len(outcome.variants) > 0 {
			result.ByVendor[vendor] = outcome.variants
			result.Ranked = append(result.Ranked, outcome.variants...)
		}
	}
	sort.Strings(result.QueriedVendors)
	result.Ranked = Rank(result.Ranked)

	if len(result.Ranked) == 0 {
		return nil, types.NewError(types.CATALOG_NO_VARIANTS,
			"no vendor returned variants for "+productName)
	}

	c.logger.Info("variants collected",
		"product", productName,
		"variants", len(result.Ranked),
		"vendors_ok", len(result.QueriedVendors),
		"vendors_failed", len(result.FailedVendors))

	return result, nil
}

// PricePerBaseUnit normalizes a variant's price to the base weight unit.
// Grams convert to kilograms; other units are taken at face value so
// piece-priced goods still rank by price per piece.
func PricePerBaseUnit(v catalog.Variant) float64 {
	weight := v.Weight
	if v.Unit == "g" {
		weight = v.Weight / 1000
	}
	if weight <= 0 {
		return v.Price
	}
	return v.Price / weight
}

// Rank orders variants ascending by normalized price, ties broken by vendor
// name then brand for reproducibility. The input slice is sorted in place and
// returned.
func Rank(variants []catalog.Variant) []catalog.Variant {
	sort.SliceStable(variants, func(i, j int) bool {
		pi, pj := PricePerBaseUnit(variants[i]), PricePerBaseUnit(variants[j])
		if pi != pj {
			return pi < pj
		}
		if variants[i].Vendor != variants[j].Vendor {
			return variants[i].Vendor < variants[j].Vendor
		}
		return variants[i].Brand < variants[j].Brand
	})
	return variants
}
