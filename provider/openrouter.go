package provider

import (
	"context"
	"fmt"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatkit/model"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "meta-llama/llama-3.2-90b-instruct"
)

// OpenRouterProvider implements the Provider interface against OpenRouter's
// API, which speaks the OpenAI chat-completions wire format. The streaming
// path is shared with the OpenAI adapter; what differs is the base URL,
// attribution headers, vendor-prefixed model names and OpenRouter's stricter
// tool-name charset.
type OpenRouterProvider struct {
	model   string
	baseURL string
	apiKey  string
}

// NewOpenRouterProvider creates a new OpenRouter provider instance.
// Returns an error if the API key is missing.
func NewOpenRouterProvider(cfg Config) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = defaultOpenRouterModel
	}

	return &OpenRouterProvider{
		model:   mdl,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

// convertToolNamesForOpenRouter converts tool names from dotted notation to
// underscore notation. OpenRouter requires tool names matching
// ^[a-zA-Z0-9_-]{1,64}$ (no dots allowed).
// Example: "server-filesystem.read_file" → "server-filesystem__read_file"
func convertToolNamesForOpenRouter(tools []mcptypes.Tool) []mcptypes.Tool {
	converted := make([]mcptypes.Tool, len(tools))
	for i, tool := range tools {
		converted[i] = tool
		converted[i].Name = strings.ReplaceAll(tool.Name, ".", "__")
	}
	return converted
}

// convertToolNameFromOpenRouter reverses convertToolNamesForOpenRouter.
// Example: "server-filesystem__read_file" → "server-filesystem.read_file"
func convertToolNameFromOpenRouter(toolName string) string {
	return strings.ReplaceAll(toolName, "__", ".")
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OpenRouterProvider) Chat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	return p.ChatWithTools(ctx, messages, nil, handlers)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
func (p *OpenRouterProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	params := openaiRequest{
		Model:    p.model,
		Messages: convertToOpenAIMessages(messages),
		Stream:   true,
		Tools:    ConvertToolsToOpenAI(convertToolNamesForOpenRouter(tools)),
	}

	// Restore dotted tool names on every snapshot before the caller sees it.
	wrapped := handlers
	if handlers.OnToolCall != nil {
		wrapped.OnToolCall = func(call model.ToolCall) {
			call.Name = convertToolNameFromOpenRouter(call.Name)
			handlers.OnToolCall(call)
		}
	}

	msg, err := streamOpenAI(ctx, "openrouter", p.baseURL+"/chat/completions", p.headers(), params, wrapped)
	if err != nil {
		return nil, err
	}
	for i := range msg.ToolCalls {
		msg.ToolCalls[i].Name = convertToolNameFromOpenRouter(msg.ToolCalls[i].Name)
	}
	return msg, nil
}

// ListModels implements Provider.ListModels with prefix stripping.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	var list openaiModelList
	if err := getJSON(ctx, "openrouter", p.baseURL+"/models", p.headers(), &list); err != nil {
		return nil, fmt.Errorf("failed to list OpenRouter models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		result = append(result, model.ModelInfo{
			Name:         stripProviderPrefix(m.ID), // Display: "llama-3.2-90b-instruct"
			InternalName: m.ID,                      // API: "meta-llama/llama-3.2-90b-instruct"
			Provider:     "openrouter",
		})
	}
	return result, nil
}

// GetModel implements Provider.GetModel.
// Returns the full model name with vendor prefix for API calls.
func (p *OpenRouterProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
// Returns the model name with the vendor prefix stripped.
// Example: "qwen/qwen3-coder:free" → "qwen3-coder:free"
func (p *OpenRouterProvider) GetDisplayName() string {
	return stripProviderPrefix(p.model)
}

// SetModel implements Provider.SetModel.
func (p *OpenRouterProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenRouterProvider) Ping(ctx context.Context) error {
	var list openaiModelList
	if err := getJSON(ctx, "openrouter", p.baseURL+"/models", p.headers(), &list); err != nil {
		return fmt.Errorf("OpenRouter ping failed: %w", err)
	}
	return nil
}

func (p *OpenRouterProvider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.apiKey,
		"X-Title":       "chatkit",
	}
}

// stripProviderPrefix removes vendor prefixes from OpenRouter model names.
// "meta-llama/llama-3.2-90b-instruct" → "llama-3.2-90b-instruct"
func stripProviderPrefix(modelName string) string {
	if idx := strings.Index(modelName, "/"); idx != -1 {
		return modelName[idx+1:]
	}
	return modelName
}
