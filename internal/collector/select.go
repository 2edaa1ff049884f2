package collector

import (
	"fmt"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/types"
)

// Strategy names how a requested quantity is fulfilled.
type Strategy string

const (
	// StrategyExactPack fulfills the request with a single pack at or above
	// the requested quantity.
	StrategyExactPack Strategy = "exact_pack"
	// StrategyAggregation fulfills the request by aggregating the pack with
	// the best unit rate.
	StrategyAggregation Strategy = "aggregation"
)

// Selection reason codes.
const (
	ReasonExactPackPreferred = "exact_pack_preferred"
	ReasonAggregationCheaper = "aggregation_cheaper"
	ReasonNoExactPack        = "no_exact_pack"
)

// DefaultDominanceThreshold is how much cheaper aggregation must be to beat
// an exact pack. Aggregation wins only below threshold × exact price, so a
// marginal saving never outweighs the convenience of a single pack.
const DefaultDominanceThreshold = 0.85

// Selection is the deterministic quantity-fulfillment decision for one
// product. It feeds the reasoning prompt as context; the reasoning step still
// owns the final vendor choice.
type Selection struct {
	Strategy   Strategy
	Chosen     catalog.Variant
	TotalPrice float64
	Reason     string
}

// SelectByQuantity decides between buying one exact pack and aggregating
// smaller packs for a requested quantity. requestedQty is in the base weight
// unit (kg). A non-positive threshold falls back to the default.
func SelectByQuantity(variants []catalog.Variant, requestedQty float64, threshold float64) (*Selection, error) {
	if len(variants) == 0 {
		return nil, types.NewError(types.CATALOG_NO_VARIANTS, "no variants to select from")
	}
	if requestedQty <= 0 {
		return nil, types.NewError(types.CATALOG_INVALID_RESPONSE,
			fmt.Sprintf("requested quantity must be positive, got %v", requestedQty))
	}
	if threshold <= 0 {
		threshold = DefaultDominanceThreshold
	}

	var (
		bestExact   *catalog.Variant
		bestRate    float64
		bestRateIdx = -1
	)
	for i, v := range variants {
		weightKg := v.Weight
		if v.Unit == "g" {
			weightKg = v.Weight / 1000
		}
		if weightKg <= 0 {
			continue
		}

		rate := v.Price / weightKg
		if bestRateIdx < 0 || rate < bestRate {
			bestRate = rate
			bestRateIdx = i
		}

		if weightKg >= requestedQty {
			if bestExact == nil || v.Price < bestExact.Price {
				bestExact = &variants[i]
			}
		}
	}
	if bestRateIdx < 0 {
		return nil, types.NewError(types.CATALOG_NO_VARIANTS, "no variant has a usable pack weight")
	}

	aggregatePrice := bestRate * requestedQty

	if bestExact != nil {
		if aggregatePrice < bestExact.Price*threshold {
			return &Selection{
				Strategy:   StrategyAggregation,
				Chosen:     variants[bestRateIdx],
				TotalPrice: aggregatePrice,
				Reason:     ReasonAggregationCheaper,
			}, nil
		}
		return &Selection{
			Strategy:   StrategyExactPack,
			Chosen:     *bestExact,
			TotalPrice: bestExact.Price,
			Reason:     ReasonExactPackPreferred,
		}, nil
	}

	return &Selection{
		Strategy:   StrategyAggregation,
		Chosen:     variants[bestRateIdx],
		TotalPrice: aggregatePrice,
		Reason:     ReasonNoExactPack,
	}, nil
}
