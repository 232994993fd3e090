package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultMaxTokens      = 1024
	defaultTemperature    = 0.3
)

// shared HTTP client for Anthropic API calls
var anthropicHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Anthropic API calls (50 requests/second with burst capacity of 10)
var anthropicRateLimiter = rate.NewLimiter(50, 10)

type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float32            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type messagesResponse struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
	Model   string         `json:"model"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

type AnthropicGenerator struct {
	config     AnthropicConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewAnthropicGenerator(config AnthropicConfig) *AnthropicGenerator {
	if config.Model == "" {
		config.Model = defaultAnthropicModel
	}

	if config.BaseURL == "" {
		config.BaseURL = anthropicBaseURL
	}

	if config.MaxTokens == 0 {
		config.MaxTokens = defaultMaxTokens
	}

	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}

	return &AnthropicGenerator{
		config:     config,
		httpClient: anthropicHTTPClient,
		limiter:    anthropicRateLimiter,
	}
}

func (g *AnthropicGenerator) Model() string {
	return g.config.Model
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	imagesAt := lastUserIndex(req.Messages)
	messages := make([]anthropicMessage, 0, len(req.Messages))

	for i, msg := range req.Messages {
		blocks := []contentBlock{}

		if i == imagesAt {
			for _, url := range req.ImageURLs {
				blocks = append(blocks, contentBlock{
					Type:   "image",
					Source: &imageSource{Type: "url", URL: url},
				})
			}
		}

		blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
		messages = append(messages, anthropicMessage{Role: msg.Role, Content: blocks})
	}

	// determine max tokens (use request value or fall back to config)
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	jsonData, err := json.Marshal(messagesRequest{
		Model:       g.config.Model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: g.config.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		strings.TrimRight(g.config.BaseURL, "/")+"/v1/messages",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	// rate limiting
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("no content in response")
	}

	model := apiResp.Model
	if model == "" {
		model = g.config.Model
	}

	return &GenerationResponse{
		Text:  strings.TrimSpace(text.String()),
		Model: model,
		Usage: Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}, nil
}
