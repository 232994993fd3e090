package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// shared HTTP client for OpenAI API calls
var openaiHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

type OpenAIConfig struct {
	APIKey      string
	Model       string
	// for OpenAI-compatible gateways
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
}

func NewOpenAIGenerator(config OpenAIConfig) *OpenAIGenerator {
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}

	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	clientConfig.HTTPClient = openaiHTTPClient

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (g *OpenAIGenerator) Model() string {
	return g.config.Model
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	imagesAt := lastUserIndex(req.Messages)

	for i, msg := range req.Messages {
		if i != imagesAt || len(req.ImageURLs) == 0 {
			messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
			continue
		}

		parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: msg.Content}}
		for _, url := range req.ImageURLs {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto},
			})
		}

		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, MultiContent: parts})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no content in response")
	}

	model := resp.Model
	if model == "" {
		model = g.config.Model
	}

	return &GenerationResponse{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
