package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONDirect(t *testing.T) {
	var out map[string]any
	err := ParseJSON(`{"a":1}`, &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestParseJSONFencedBlock(t *testing.T) {
	var out map[string]any
	err := ParseJSON("```json\n{\"a\":1}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestParseJSONFencedBlockNoLanguageTag(t *testing.T) {
	var out map[string]any
	err := ParseJSON("```\n{\"a\":1}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestParseJSONSurroundedByProse(t *testing.T) {
	var out map[string]any
	err := ParseJSON(`here is the grade: {"a":1} thanks`, &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestParseJSONLeadingWhitespace(t *testing.T) {
	var out map[string]any
	err := ParseJSON("  \n\t {\"a\":1}  \n", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestParseJSONNotJSON(t *testing.T) {
	var out map[string]any
	err := ParseJSON("not json at all", &out)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "not json at all", parseErr.Raw)
}

func TestParseJSONNullReply(t *testing.T) {
	// json.Unmarshal treats "null" as a no-op success; a null reply must
	// still be rejected so callers fall back to their error grade.
	var out map[string]any
	err := ParseJSON("null", &out)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestParseJSONNonObjectReplies(t *testing.T) {
	for _, raw := range []string{`[1, 2, 3]`, `"ok"`, `true`, `42`, "```json\nnull\n```"} {
		var out map[string]any
		err := ParseJSON(raw, &out)
		assert.Error(t, err, "raw: %s", raw)
	}
}

func TestParseJSONTypedTarget(t *testing.T) {
	var out struct {
		Flagged bool   `json:"flagged"`
		Message string `json:"message"`
	}
	raw := "Sure! ```json\n{\"flagged\": true, \"message\": \"check c1\"}\n```"
	// fenced block not at the start of the text falls back to the span search
	err := ParseJSON(raw, &out)
	require.NoError(t, err)
	assert.True(t, out.Flagged)
	assert.Equal(t, "check c1", out.Message)
}

func TestDecodeObjectRejectsNonObject(t *testing.T) {
	_, err := DecodeObject(`[1, 2, 3]`)
	require.Error(t, err)
}
