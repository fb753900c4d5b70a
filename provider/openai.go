package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatkit/model"
	"chatkit/sse"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"

	// doneSentinel ends OpenAI-style streams; Anthropic-style streams end
	// when the underlying connection closes.
	doneSentinel = "[DONE]"
)

// OpenAIProvider implements the Provider interface against the OpenAI chat
// completions API, parsing the flat-indexed SSE delta stream directly.
// OpenRouter reuses the same wire format (see openrouter.go).
type OpenAIProvider struct {
	model   string
	baseURL string
	apiKey  string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
// Returns an error if the API key is missing.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = defaultOpenAIModel // Default to affordable model
	}

	return &OpenAIProvider{
		model:   mdl,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

// Request body for POST /chat/completions.
type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []openaiTool    `json:"tools,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiTool struct {
	Type     string         `json:"type"` // always "function"
	Function openaiFunction `json:"function"`
}

type openaiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// openaiChunk is one decoded streaming chunk. Tool calls are addressed by a
// flat per-call index with no explicit stop event: identity is established
// on first sight of an index, name and argument text accumulate across
// chunks, and completion is implied by finish_reason or stream end.
type openaiChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`

			// Reasoning-capable OpenAI-compatible backends stream the
			// thinking channel here.
			ReasoningContent string `json:"reasoning_content"`

			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// openaiModelList is the GET /models response shape.
type openaiModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	return p.ChatWithTools(ctx, messages, nil, handlers)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	params := openaiRequest{
		Model:    p.model,
		Messages: convertToOpenAIMessages(messages),
		Stream:   true,
		Tools:    ConvertToolsToOpenAI(tools),
	}
	return streamOpenAI(ctx, "openai", p.baseURL+"/chat/completions", p.headers(), params, handlers)
}

// streamOpenAI runs one OpenAI-wire streaming completion and folds it into a
// final message. Shared by the OpenAI and OpenRouter adapters.
func streamOpenAI(ctx context.Context, providerName, url string, headers map[string]string, params openaiRequest, handlers model.StreamHandlers) (*model.Message, error) {
	resp, err := postJSON(ctx, providerName, url, headers, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	acc := newAccumulator(handlers)
	reader := sse.NewReader(resp.Body)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := reader.Next()
		if err == io.EOF {
			// Completion without [DONE]: tolerated, tool calls finalize
			// in acc.Message().
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%s stream read failed: %w", providerName, err)
		}

		if frame.Data == doneSentinel {
			break
		}
		dispatchOpenAIChunk(acc, []byte(frame.Data), providerName)
	}

	return acc.Message(), nil
}

// dispatchOpenAIChunk applies one decoded chunk to the accumulator.
// A malformed chunk is skipped, never fatal.
func dispatchOpenAIChunk(acc *accumulator, data []byte, providerName string) {
	var chunk openaiChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		slog.Debug("skipping malformed stream event", "provider", providerName, "error", err)
		return
	}
	if len(chunk.Choices) == 0 {
		return
	}

	delta := chunk.Choices[0].Delta
	acc.AppendText(delta.Content)
	acc.AppendThinking(delta.ReasoningContent)

	for _, tc := range delta.ToolCalls {
		if !acc.HasToolCall(tc.Index) {
			acc.StartToolCall(tc.Index, tc.ID, tc.Function.Name)
		} else {
			acc.AppendToolName(tc.Index, tc.Function.Name)
		}
		acc.AppendToolArgs(tc.Index, tc.Function.Arguments)
	}
}

// ListModels implements Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	var list openaiModelList
	if err := getJSON(ctx, "openai", p.baseURL+"/models", p.headers(), &list); err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		result = append(result, model.ModelInfo{
			Name:         m.ID,
			InternalName: m.ID,
			Provider:     "openai",
		})
	}
	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
func (p *OpenAIProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	var list openaiModelList
	if err := getJSON(ctx, "openai", p.baseURL+"/models", p.headers(), &list); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}
}

// convertToOpenAIMessages converts chatkit messages to OpenAI format.
func convertToOpenAIMessages(messages []model.Message) []openaiMessage {
	result := make([]openaiMessage, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem, model.RoleUser, model.RoleAssistant:
			result[i] = openaiMessage{Role: msg.Role, Content: msg.Content}
		default:
			// Unknown roles are sent as user messages.
			result[i] = openaiMessage{Role: model.RoleUser, Content: msg.Content}
		}
	}
	return result
}
