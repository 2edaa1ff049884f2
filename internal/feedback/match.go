// Package feedback classifies free-form cart feedback into a closed action
// set and applies the matching mutation. Mutations are all-or-nothing: they
// run against a clone of the cart and swap it in only on success.
package feedback

import (
	"regexp"
	"strconv"
	"strings"
)

// MatchTargets identifies which cart products a feedback utterance refers to
// by matching normalized forms of the actual cart keys against the text,
// never a fixed vocabulary. Matching order follows the cart key order for
// determinism.
//
// A key matches on its full phrase ("basmati rice" in the input) or on
// enough of its words: single-word keys match their word, multi-word keys
// tolerate one missing word ("the basmati" still targets basmati_rice).
func MatchTargets(userInput string, cartProducts []string) []string {
	input := strings.ToLower(userInput)

	var matched []string
	for _, product := range cartProducts {
		normalized := strings.ToLower(strings.ReplaceAll(product, "_", " "))

		if strings.Contains(input, normalized) {
			matched = append(matched, product)
			continue
		}

		words := strings.Fields(normalized)
		hits := 0
		for _, w := range words {
			if containsWord(input, w) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if len(words) == 1 || hits >= len(words)-1 {
			matched = append(matched, product)
		}
	}
	return matched
}

// containsWord reports whether w appears in input as a whole token, so
// "rice" does not match "price".
func containsWord(input, w string) bool {
	for _, token := range strings.FieldsFunc(input, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if token == w {
			return true
		}
	}
	return false
}

var quantityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kg|g)\b`)

// ExtractQuantity pulls a weight quantity out of feedback text ("make it
// 2kg", "500 g instead"). Grams normalize to kilograms. Returns ok=false
// when no quantity is present.
func ExtractQuantity(text string) (qty float64, unit string, ok bool) {
	match := quantityPattern.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return 0, "", false
	}

	qty, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, "", false
	}

	unit = match[2]
	if unit == "g" {
		qty /= 1000
		unit = "kg"
	}
	return qty, unit, true
}
