package respparse_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actflow/internal/respparse"
)

func TestParse_WholeText(t *testing.T) {
	raw := `{"document_type":"Акт","act":{"items":[{"quantity":2}]}}`

	got := respparse.Parse(raw)

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &want))
	assert.Equal(t, want, got)
	assert.False(t, respparse.IsFailure(got))
}

func TestParse_JSONFence(t *testing.T) {
	raw := "Here is the data:\n```json\n{\"document_number\": \"15\"}\n```\nDone."

	got := respparse.Parse(raw)

	assert.Equal(t, "15", got["document_number"])
}

func TestParse_GenericFence(t *testing.T) {
	raw := "```\n{\"customer\": \"ООО Ромашка\"}\n```"

	got := respparse.Parse(raw)

	assert.Equal(t, "ООО Ромашка", got["customer"])
}

func TestParse_GenericFenceWithLanguageTag(t *testing.T) {
	raw := "```JSON\n{\"contract\": \"Д-1\"}\n```"

	got := respparse.Parse(raw)

	assert.Equal(t, "Д-1", got["contract"])
}

func TestParse_JSONFenceInvalidFallsThroughToBraceSpan(t *testing.T) {
	raw := "```json\nnot json at all\n``` but later {\"a\": 1}"

	got := respparse.Parse(raw)

	assert.Equal(t, float64(1), got["a"])
}

func TestParse_BraceSpan(t *testing.T) {
	raw := "The extracted values are {\"total\": {\"total_cost\": \"100\"}} as requested."

	got := respparse.Parse(raw)

	total, ok := got["total"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "100", total["total_cost"])
}

func TestParse_Failure(t *testing.T) {
	raw := "I could not read this page."

	got := respparse.Parse(raw)

	assert.True(t, respparse.IsFailure(got))
	assert.Equal(t, raw, got["raw_response"])
	assert.Equal(t, respparse.ParsingErrorMessage, got["parsing_error"])
}

func TestParse_NonObjectJSONIsFailure(t *testing.T) {
	for _, raw := range []string{"[1,2,3]", "42", "null", `"text"`} {
		got := respparse.Parse(raw)
		assert.True(t, respparse.IsFailure(got), raw)
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"", "```", "```json", "{", "}", "{{}", "```json\n{\"a\":```",
		strings.Repeat("{", 1000), "\x00\xff", "{\"a\": NaN}",
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() {
			got := respparse.Parse(raw)
			assert.NotNil(t, got)
		})
	}
}

func TestNew_ExtraStrategy(t *testing.T) {
	p := respparse.New(respparse.Strategy{
		Name: "single_quotes",
		Extract: func(raw string) (string, bool) {
			return strings.ReplaceAll(raw, "'", `"`), true
		},
	})

	got := p.Parse("{'a': 'b'}")

	assert.Equal(t, "b", got["a"])
}

func TestNew_PanickingStrategyIsSkipped(t *testing.T) {
	p := respparse.New(respparse.Strategy{
		Name:    "broken",
		Extract: func(string) (string, bool) { panic("boom") },
	})

	got := p.Parse("nothing here")

	assert.True(t, respparse.IsFailure(got))
}
