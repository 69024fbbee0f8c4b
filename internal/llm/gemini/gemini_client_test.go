package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actflow/internal/config"
	"actflow/internal/llm"
	"actflow/internal/llm/gemini"
	"actflow/internal/port"
)

func newTestClient(serverURL string) *gemini.Client {
	return gemini.NewClientWithEndpoint(&config.LLMProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-api-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  30,
	}, serverURL)
}

func TestGeminiClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))

		sys := reqBody["systemInstruction"].(map[string]interface{})
		sysParts := sys["parts"].([]interface{})
		assert.Equal(t, "You extract acts.", sysParts[0].(map[string]interface{})["text"])

		genCfg := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, float64(0), genCfg["temperature"])

		contents := reqBody["contents"].([]interface{})
		parts := contents[0].(map[string]interface{})["parts"].([]interface{})
		require.Len(t, parts, 2)
		inline := parts[0].(map[string]interface{})["inline_data"].(map[string]interface{})
		assert.Equal(t, "image/png", inline["mime_type"])
		assert.Equal(t, "Page 2 of 2.", parts[1].(map[string]interface{})["text"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content":      map[string]interface{}{"parts": []map[string]interface{}{{"text": `{"customer":"ООО"}`}}},
					"finishReason": "STOP",
				},
			},
			"usageMetadata": map[string]interface{}{"promptTokenCount": 300, "candidatesTokenCount": 9},
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Complete(context.Background(), &port.CompletionRequest{
		SystemPrompt: "You extract acts.",
		UserText:     "Page 2 of 2.",
		Images:       []port.Image{{Data: []byte("png"), MediaType: "image/png"}},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"customer":"ООО"}`, resp.Content)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, "gemini-2.0-flash", resp.Model)
	assert.Equal(t, int64(9), resp.CompletionTokens)
}

func TestGeminiClient_Complete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), &port.CompletionRequest{UserText: "x"})

	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini", rlErr.Provider)
}

func TestGeminiClient_Complete_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), &port.CompletionRequest{UserText: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGeminiClient_Complete_MaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{"}]},"finishReason":"MAX_TOKENS"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), &port.CompletionRequest{UserText: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_TOKENS")
}

func TestGeminiClient_Complete_BadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), &port.CompletionRequest{UserText: "x"})

	var apiErr *llm.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
