package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"actflow/internal/config"
	"actflow/internal/llm"
	"actflow/internal/port"
)

// ProviderName is the registry key of this provider.
const ProviderName = "openai"

const defaultModel = "gpt-4o"

func init() {
	llm.RegisterProvider(ProviderName, func(cfg *config.LLMProviderConfig) (port.LLMClient, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.LLMClient using the OpenAI Chat Completions API.
type Client struct {
	model  string
	client openaisdk.Client
}

// NewClient creates an OpenAI-backed client from a provider config.
func NewClient(cfg *config.LLMProviderConfig) *Client {
	return newClient(cfg, cfg.BaseURL)
}

// NewClientWithEndpoint creates a client pointing at a custom API base URL (for testing).
func NewClientWithEndpoint(cfg *config.LLMProviderConfig, baseURL string) *Client {
	return newClient(cfg, baseURL)
}

func newClient(cfg *config.LLMProviderConfig, baseURL string) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	// Retries are owned by llm.ResilientClient.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		model:  model,
		client: openaisdk.NewClient(opts...),
	}
}

func (c *Client) Complete(ctx context.Context, req *port.CompletionRequest) (*port.CompletionResponse, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	parts := []openaisdk.ChatCompletionContentPartUnionParam{openaisdk.TextContentPart(req.UserText)}
	for _, img := range req.Images {
		parts = append(parts, openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
			URL:    dataURL(img),
			Detail: "high",
		}))
	}

	var messages []openaisdk.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openaisdk.UserMessage(parts))

	completion, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(model),
		Messages:    messages,
		Temperature: openaisdk.Float(req.Temperature),
		MaxTokens:   openaisdk.Int(4096),
	})
	if err != nil {
		return nil, mapError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	if completion.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	return &port.CompletionResponse{
		Content:          completion.Choices[0].Message.Content,
		Model:            completion.Model,
		Provider:         ProviderName,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}

func dataURL(img port.Image) string {
	mediaType := img.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func mapError(err error) error {
	var apiErr *openaisdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("calling openai API: %w", err)
	}
	body := strings.TrimSpace(apiErr.Message)
	if body == "" {
		body = http.StatusText(apiErr.StatusCode)
	}
	baseErr := &llm.APIError{Provider: ProviderName, StatusCode: apiErr.StatusCode, Body: body}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := 0
		if apiErr.Response != nil {
			retryAfter = llm.ParseRetryAfterHeader(apiErr.Response.Header.Get("Retry-After"))
		}
		return llm.NewRateLimitError(ProviderName, baseErr, retryAfter)
	}
	return baseErr
}
