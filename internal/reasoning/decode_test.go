package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/cartloop/internal/types"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{
			name:   "json fence",
			answer: "Here is the answer:\n```json\n{\"action\": \"remove\"}\n```\nHope that helps.",
			want:   `{"action": "remove"}`,
		},
		{
			name:   "untagged fence",
			answer: "```\n{\"confidence\": 0.9}\n```",
			want:   `{"confidence": 0.9}`,
		},
		{
			name:   "raw object with surrounding prose",
			answer: `The best choice is {"selected_vendor": "bigbasket", "confidence": 0.95} based on price.`,
			want:   `{"selected_vendor": "bigbasket", "confidence": 0.95}`,
		},
		{
			name:   "nested objects",
			answer: `{"selected_variant": {"brand": "bb Royal", "price": 310}}`,
			want:   `{"selected_variant": {"brand": "bb Royal", "price": 310}}`,
		},
		{
			name:   "braces inside strings",
			answer: `{"reasoning": "cheapest option {by far}", "confidence": 0.8}`,
			want:   `{"reasoning": "cheapest option {by far}", "confidence": 0.8}`,
		},
		{
			name:   "skips non-json fence",
			answer: "```python\nprint('hi')\n```\n{\"action\": \"add\"}",
			want:   `{"action": "add"}`,
		},
		{
			name:   "fence wins over raw chatter",
			answer: "some {noise ```json\n{\"action\": \"checkout\"}\n```",
			want:   `{"action": "checkout"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractObject(tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractObjectRejections(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"no json at all", "I could not decide, sorry."},
		{"unbalanced braces", `{"action": "remove"`},
		{"top-level array", `[{"name": "rice"}, {"name": "sugar"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractObject(tt.answer)
			require.Error(t, err)
			assert.Equal(t, types.REASONING_INVALID_OUTPUT, types.CodeOf(err))
		})
	}
}

func TestDecodeObject(t *testing.T) {
	type decision struct {
		Vendor     string  `json:"selected_vendor"`
		Confidence float64 `json:"confidence"`
	}

	got, err := DecodeObject[decision]("```json\n{\"selected_vendor\": \"zepto\", \"confidence\": 0.9}\n```")
	require.NoError(t, err)
	assert.Equal(t, "zepto", got.Vendor)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)

	_, err = DecodeObject[decision]("no json here")
	require.Error(t, err)
	assert.Equal(t, types.REASONING_INVALID_OUTPUT, types.CodeOf(err))

	// Shape mismatches surface as parse failures, not missing output.
	_, err = DecodeObject[decision](`{"selected_vendor": 42}`)
	require.Error(t, err)
	assert.Equal(t, types.REASONING_PARSE_FAILED, types.CodeOf(err))
}

func TestRawObject(t *testing.T) {
	got, ok := rawObject(`{"a": {"b": 1}} trailing`)
	assert.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	got, ok = rawObject(`{"s": "escaped \" quote"}`)
	assert.True(t, ok)
	assert.Equal(t, `{"s": "escaped \" quote"}`, got)

	_, ok = rawObject(`{"open": 1`)
	assert.False(t, ok)
}
