package llm

import (
	"errors"
	"fmt"
)

const (
	DefaultOllamaModel   = "llama3.1"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
)

// ErrNoCredentials is returned when the chosen provider has no key configured.
var ErrNoCredentials = errors.New("no credentials configured")

// ProviderConfig holds every provider's settings; NewClient uses the ones
// belonging to Provider.
type ProviderConfig struct {
	Provider       string // anthropic, openai, ollama
	AnthropicKey   string
	AnthropicToken string // OAuth token (Bearer auth)
	OpenAIKey      string
	Model          string
	OllamaBaseURL  string
}

// NewClient builds the client for cfg.Provider. A hosted provider without
// credentials is an error here rather than a fallback on every request.
func NewClient(cfg ProviderConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" && cfg.AnthropicToken == "" {
			return nil, fmt.Errorf("anthropic: %w (ANTHROPIC_API_KEY or ANTHROPIC_AUTH_TOKEN)", ErrNoCredentials)
		}
		return NewAnthropicClient(cfg.AnthropicKey, cfg.AnthropicToken, cfg.Model), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai: %w (OPENAI_API_KEY)", ErrNoCredentials)
		}
		return NewOpenAIClient(cfg.OpenAIKey, cfg.Model, ""), nil
	case "ollama":
		model, baseURL := cfg.Model, cfg.OllamaBaseURL
		if model == "" {
			model = DefaultOllamaModel
		}
		if baseURL == "" {
			baseURL = DefaultOllamaBaseURL
		}
		// Ollama speaks the OpenAI wire format and ignores the key.
		return NewOpenAIClient("ollama", model, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
