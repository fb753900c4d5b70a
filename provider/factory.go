package provider

import (
	"fmt"

	"chatkit/model"
)

// NewProvider creates a provider from configuration. It dispatches on
// Config.Type; each constructor applies its own defaults for missing
// optional fields (base URL, model, token limits).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg)
	case ProviderTypeOpenRouter:
		return NewOpenRouterProvider(cfg)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg)
	case ProviderTypeBedrock:
		return NewBedrockProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a user-facing provider ID from configuration
// into the ProviderType the factory dispatches on. Unknown IDs pass through
// unchanged so the factory reports them in its error.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic", "claude":
		return ProviderTypeAnthropic
	case "bedrock", "aws":
		return ProviderTypeBedrock
	default:
		return ProviderType(id)
	}
}
