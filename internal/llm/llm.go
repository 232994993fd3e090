package llm

import (
	"fmt"
)

// creates the generator for the configured provider
func NewGenerator(config Config) (Generator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key required for provider %s", config.Provider)
	}

	switch config.Provider {
	case ProviderAnthropic:
		return NewAnthropicGenerator(AnthropicConfig{
			APIKey:      config.APIKey,
			Model:       config.Model,
			BaseURL:     config.BaseURL,
			MaxTokens:   config.MaxTokens,
			Temperature: config.Temperature,
		}), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:      config.APIKey,
			Model:       config.Model,
			BaseURL:     config.BaseURL,
			MaxTokens:   config.MaxTokens,
			Temperature: config.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", config.Provider)
	}
}

// the last user message carries the images
func lastUserIndex(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return i
		}
	}

	return -1
}
