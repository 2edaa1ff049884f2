package reasoning

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cartloop/cartloop/internal/types"
)

// fencedBlock matches a markdown code fence with an optional language tag.
var fencedBlock = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n```")

// DecodeObject pulls the JSON object out of a model answer and unmarshals it
// into T. Answers arrive as prose around a single object, often inside a
// markdown fence; every wire shape in this package is an object, so top-level
// arrays and scalars are rejected. A missing object is REASONING_INVALID_OUTPUT;
// an object that does not fit T is REASONING_PARSE_FAILED. Both are permanent:
// re-prompting is the caller's re-reasoning loop's job, not the transport's.
func DecodeObject[T any](answer string) (T, error) {
	var out T

	obj, err := extractObject(answer)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return out, types.WrapError(types.REASONING_PARSE_FAILED, "model output does not fit the expected shape", err)
	}
	return out, nil
}

// extractObject returns the JSON object carried by the answer, preferring
// fenced blocks over raw text so chatter around a fence never wins.
func extractObject(answer string) (string, error) {
	for _, match := range fencedBlock.FindAllStringSubmatch(answer, -1) {
		lang := strings.ToLower(match[1])
		if lang != "" && lang != "json" {
			continue
		}
		body := strings.TrimSpace(match[2])
		if strings.HasPrefix(body, "{") && json.Valid([]byte(body)) {
			return body, nil
		}
	}

	if obj, ok := rawObject(answer); ok {
		return obj, nil
	}
	return "", types.NewError(types.REASONING_INVALID_OUTPUT, "model output carries no JSON object")
}

// rawObject scans for a balanced {...} outside any fence, tracking string and
// escape state so braces inside string values do not end it early.
func rawObject(answer string) (string, bool) {
	start := strings.IndexByte(answer, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(answer); i++ {
		c := answer[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := answer[start : i+1]
				return candidate, json.Valid([]byte(candidate))
			}
		}
	}
	return "", false
}
