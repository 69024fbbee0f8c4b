package llm_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"actflow/internal/llm"
)

func TestNewRateLimitError_DefaultRetryAfter(t *testing.T) {
	err := llm.NewRateLimitError("openai", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
}

func TestRateLimitError_Unwrap(t *testing.T) {
	base := errors.New("429")
	err := llm.NewRateLimitError("openai", base, 5)

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "openai rate limited")
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 30, llm.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, llm.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, llm.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestAPIError(t *testing.T) {
	err := &llm.APIError{Provider: "claude", StatusCode: 502, Body: strings.Repeat("x", 600)}

	assert.True(t, err.Temporary())
	assert.Contains(t, err.Error(), "claude API error (status 502)")
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
	assert.False(t, (&llm.APIError{StatusCode: 404}).Temporary())
}
