// Package provider implements the LLM provider adapters and the stream
// normalizer that folds each provider's wire events into the
// provider-agnostic message model.
//
// Every adapter implements model.Provider. The adapters share one
// accumulator (see accumulator.go) so that two very different wire shapes,
// block-indexed start/delta/stop streams (Anthropic, Bedrock) and
// flat-indexed delta-only streams (OpenAI, OpenRouter), produce the same
// model.Message and model.ToolCall values.
//
// # Adding a provider
//
//   - define a ProviderType constant and wire it into NewProvider,
//   - translate model.Message and mcp tool definitions into the wire format,
//   - drive an accumulator from the provider's stream events.
//
// Parsing-level anomalies (a malformed frame, tool arguments that don't
// parse) are absorbed with best-effort fallbacks; only transport-level
// failures and caller cancellation abort a Chat call.
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeBedrock    ProviderType = "bedrock"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // For OpenAI/OpenRouter/Anthropic (unused for Ollama/Bedrock)
	Region  string // For Bedrock (default "us-east-1")

	// MaxTokens caps the response length. 0 means the adapter default.
	MaxTokens int

	// Thinking requests the provider's reasoning channel where the model
	// supports it (Anthropic/Bedrock thinking blocks).
	Thinking bool
}
