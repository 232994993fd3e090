package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicGenerate(t *testing.T) {
	var got messagesRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "  Drink water and rest.  "}],
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	gen := NewAnthropicGenerator(AnthropicConfig{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL})

	resp, err := gen.Generate(context.Background(), GenerationRequest{
		SystemPrompt: "be careful",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "what is this rash?"},
		},
		ImageURLs: []string{"https://img.example.com/rash.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Drink water and rest.", resp.Text)
	assert.Equal(t, "claude-test", resp.Model)
	assert.Equal(t, 12, resp.Usage.InputTokens)

	assert.Equal(t, "be careful", got.System)
	require.Len(t, got.Messages, 3)
	assert.Len(t, got.Messages[0].Content, 1)

	last := got.Messages[2].Content
	require.Len(t, last, 2)
	assert.Equal(t, "image", last[0].Type)
	assert.Equal(t, "https://img.example.com/rash.jpg", last[0].Source.URL)
	assert.Equal(t, "text", last[1].Type)
}

func TestAnthropicGenerateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer server.Close()

	gen := NewAnthropicGenerator(AnthropicConfig{APIKey: "k", BaseURL: server.URL})

	_, err := gen.Generate(context.Background(), GenerationRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")

	_, err = gen.Generate(context.Background(), GenerationRequest{})
	assert.Error(t, err)
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "See a doctor."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 4, "total_tokens": 13}
		}`))
	}))
	defer server.Close()

	gen := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", Model: "gpt-test", BaseURL: server.URL + "/v1"})

	resp, err := gen.Generate(context.Background(), GenerationRequest{
		SystemPrompt: "be careful",
		Messages:     []Message{{Role: RoleUser, Content: "my knee hurts"}},
		ImageURLs:    []string{"https://img.example.com/knee.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "See a doctor.", resp.Text)
	assert.Equal(t, "gpt-test", resp.Model)
	assert.Equal(t, 4, resp.Usage.OutputTokens)

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])

	user := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok, "user message with images should use content parts")
	assert.Len(t, parts, 2)
}

func TestNewGenerator(t *testing.T) {
	gen, err := NewGenerator(Config{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicModel, gen.Model())

	gen, err = NewGenerator(Config{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-x"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-x", gen.Model())

	_, err = NewGenerator(Config{Provider: "yandex", APIKey: "k"})
	assert.Error(t, err)

	_, err = NewGenerator(Config{Provider: ProviderAnthropic})
	assert.Error(t, err)
}
