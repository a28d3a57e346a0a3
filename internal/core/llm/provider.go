package llm

import (
	"context"
	"fmt"
)

// LLMProvider interface untuk multiple AI providers
type LLMProvider interface {
	GenerateResponse(ctx context.Context, systemPrompt, userMessage string) (string, error)
	GetProviderName() string
}

// ProviderType untuk factory
type ProviderType string

const (
	ProviderOpenAI   ProviderType = "openai"
	ProviderGroq     ProviderType = "groq"
	ProviderDeepSeek ProviderType = "deepseek"
)

// ProviderConfig untuk create provider
type ProviderConfig struct {
	Type ProviderType

	OpenAIKey   string
	GroqKey     string
	DeepSeekKey string

	// BaseURL overrides the provider endpoint (self-hosted gateways, tests).
	BaseURL string

	Model       string
	Temperature float32
	MaxTokens   int
}

// NewProvider factory untuk create LLM provider. All supported providers
// speak the OpenAI chat completions API and differ only in endpoint and key.
func NewProvider(cfg ProviderConfig) (LLMProvider, error) {
	var (
		name, key, baseURL, model string
	)
	switch cfg.Type {
	case ProviderOpenAI, "":
		name, key, model = "OpenAI", cfg.OpenAIKey, "gpt-4o-mini"
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGroq:
		name, key, baseURL, model = "Groq", cfg.GroqKey, "https://api.groq.com/openai/v1", "llama-3.1-8b-instant"
		if key == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required")
		}
	case ProviderDeepSeek:
		name, key, baseURL, model = "DeepSeek", cfg.DeepSeekKey, "https://api.deepseek.com/v1", "deepseek-chat"
		if key == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is required")
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s", cfg.Type)
	}

	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		model = cfg.Model
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:        name,
		APIKey:      key,
		BaseURL:     baseURL,
		Model:       model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}), nil
}
