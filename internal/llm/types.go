package llm

import "context"

// represents different LLM providers
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// produces an assistant reply for a conversation
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
	Model() string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerationRequest struct {
	SystemPrompt string
	Messages     []Message
	// attached to the last user message
	ImageURLs    []string
	MaxTokens    int
}

type GenerationResponse struct {
	Text  string
	Model string
	Usage Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// holds configuration for generator initialization
type Config struct {
	Provider    Provider
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}
