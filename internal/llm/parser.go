package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Models do not reliably return bare JSON even under strict system
// instructions: replies arrive wrapped in markdown fences or surrounded by
// prose. The parser recovers the JSON object or fails with a ParseError
// carrying the raw text for diagnostics.

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseError means no JSON object could be recovered from a model reply.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return "could not parse JSON response from model"
}

// ParseJSON recovers a JSON object from raw model output and decodes it into
// out. The recovery order is: strip surrounding whitespace, strip a fenced
// code block if present, attempt a direct parse, then attempt the first
// {...} span found in the text.
func ParseJSON(raw string, out any) error {
	text := strings.TrimSpace(raw)
	text = stripCodeFence(text)

	// json.Unmarshal happily accepts null, scalars and arrays; only an
	// object is a valid model reply.
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), out); err == nil {
			return nil
		}
	}

	if span := jsonObjectRe.FindString(text); span != "" {
		if err := json.Unmarshal([]byte(span), out); err == nil {
			return nil
		}
	}

	return &ParseError{Raw: raw}
}

// stripCodeFence removes a surrounding markdown code fence, tolerating a
// language tag on the opening line and a missing closing fence.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// DecodeObject is ParseJSON specialized to an untyped object, for callers
// that inspect fields dynamically.
func DecodeObject(raw string) (map[string]any, error) {
	var obj map[string]any
	if err := ParseJSON(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &ParseError{Raw: raw}
	}
	return obj, nil
}
