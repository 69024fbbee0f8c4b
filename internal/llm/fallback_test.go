package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"actflow/internal/llm"
	"actflow/internal/port"
	"actflow/mocks"
)

func completion(content string) *port.CompletionResponse {
	return &port.CompletionResponse{Content: content}
}

func testRequest() *port.CompletionRequest {
	return &port.CompletionRequest{SystemPrompt: "sys", UserText: "extract"}
}

func TestFallbackClient_FirstSucceeds(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(completion(`{"a":1}`), nil)

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	resp, err := fc.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Content)
	assert.Equal(t, "openai", resp.Provider)
	c2.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallbackClient_FirstFails_SecondSucceeds(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, errors.New("generic error"))
	c2.On("Complete", mock.Anything, req).Return(completion("ok"), nil)

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	resp, err := fc.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "claude", resp.Provider)
}

func TestFallbackClient_TwoRateLimited_ThirdSucceeds(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)
	c3 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, llm.NewRateLimitError("openai", errors.New("429"), 60))
	c2.On("Complete", mock.Anything, req).Return(nil, llm.NewRateLimitError("claude", errors.New("429"), 30))
	c3.On("Complete", mock.Anything, req).Return(completion("ok"), nil)

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2, c3}, []string{"openai", "claude", "gemini"}, nil)

	resp, err := fc.Complete(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "gemini", resp.Provider)
}

func TestFallbackClient_AllRateLimited(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, llm.NewRateLimitError("openai", errors.New("429"), 60))
	c2.On("Complete", mock.Anything, req).Return(nil, llm.NewRateLimitError("claude", errors.New("429"), 30))

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	resp, err := fc.Complete(context.Background(), req)

	assert.Nil(t, resp)
	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "all", rlErr.Provider)
	assert.GreaterOrEqual(t, rlErr.RetryAfter, time.Second)
}

func TestFallbackClient_AllFail_NonRateLimit(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, errors.New("error 1"))
	c2.On("Complete", mock.Anything, req).Return(nil, errors.New("error 2"))

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	resp, err := fc.Complete(context.Background(), req)

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	assert.Contains(t, err.Error(), "error 2")

	var rlErr *llm.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestFallbackClient_SkipsOpenCircuit(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, llm.NewRateLimitError("openai", errors.New("429"), 60)).Once()
	c2.On("Complete", mock.Anything, req).Return(completion("ok"), nil)

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	_, err := fc.Complete(context.Background(), req)
	require.NoError(t, err)

	resp, err := fc.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "claude", resp.Provider)
	c1.AssertNumberOfCalls(t, "Complete", 1)
	c2.AssertNumberOfCalls(t, "Complete", 2)
}

func TestFallbackClient_CircuitAutoCloses(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, llm.NewRateLimitError("openai", errors.New("429"), 1)).Once()
	c2.On("Complete", mock.Anything, req).Return(completion("ok"), nil).Once()

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	resp, err := fc.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "claude", resp.Provider)

	time.Sleep(1100 * time.Millisecond)

	c1.On("Complete", mock.Anything, req).Return(completion("again"), nil).Once()

	resp, err = fc.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)
}

func TestFallbackClient_StopsOnCancelledContext(t *testing.T) {
	c1 := new(mocks.MockLLMClient)
	c2 := new(mocks.MockLLMClient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := testRequest()
	c1.On("Complete", mock.Anything, req).Return(nil, context.Canceled)

	fc := llm.NewFallbackClient([]port.LLMClient{c1, c2}, []string{"openai", "claude"}, nil)

	_, err := fc.Complete(ctx, req)

	assert.ErrorIs(t, err, context.Canceled)
	c2.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
