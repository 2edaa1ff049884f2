package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/collector"
)

func TestBuildSelectPromptQuantityStrategy(t *testing.T) {
	byVendor := map[string][]catalog.Variant{
		"zepto": {{Vendor: "zepto", Brand: "Daawat", Weight: 5, Unit: "kg", Price: 1550}},
	}
	hint := &collector.Selection{
		Strategy:   collector.StrategyExactPack,
		Chosen:     catalog.Variant{Vendor: "zepto", Brand: "Daawat", Weight: 5, Unit: "kg", Price: 1550},
		TotalPrice: 1550,
		Reason:     collector.ReasonExactPackPreferred,
	}

	withHint := buildSelectPrompt("basmati_rice", byVendor, hint, "")
	assert.Contains(t, withHint, "QUANTITY STRATEGY")
	assert.Contains(t, withHint, string(collector.StrategyExactPack))
	assert.Contains(t, withHint, "Daawat 5kg from zepto")

	withoutHint := buildSelectPrompt("basmati_rice", byVendor, nil, "")
	assert.NotContains(t, withoutHint, "QUANTITY STRATEGY")
}

func TestBuildSelectPromptRequirement(t *testing.T) {
	byVendor := map[string][]catalog.Variant{
		"zepto": {{Vendor: "zepto", Brand: "Daawat", Weight: 5, Unit: "kg", Price: 1550}},
	}

	prompt := buildSelectPrompt("basmati_rice", byVendor, nil, "organic only")
	assert.Contains(t, prompt, "USER CONTEXT")
	assert.Contains(t, prompt, "organic only")

	bare := buildSelectPrompt("basmati_rice", byVendor, nil, "")
	assert.NotContains(t, bare, "USER CONTEXT")
}
