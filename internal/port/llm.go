package port

import "context"

// Image is one encoded image attached to a completion request.
type Image struct {
	Data      []byte
	MediaType string
}

// CompletionRequest carries one prompt for a chat/vision model.
type CompletionRequest struct {
	SystemPrompt string
	UserText     string
	Images       []Image
	Temperature  float64
	Model        string // empty means the client default
}

// CompletionResponse is the model's text answer.
type CompletionResponse struct {
	Content          string
	Model            string
	Provider         string
	PromptTokens     int64
	CompletionTokens int64
}

// LLMClient abstracts a chat completion capability with optional images.
type LLMClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
