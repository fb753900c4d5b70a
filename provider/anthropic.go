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
	anthropicAPIVersion     = "2023-06-01"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"

	// defaultMaxTokens is used when the config doesn't cap the response.
	// The Anthropic API requires max_tokens on every request.
	defaultMaxTokens = 4096

	// thinkingBudgetTokens is the reasoning budget requested when the
	// thinking channel is enabled.
	thinkingBudgetTokens = 2048
)

// AnthropicProvider implements the Provider interface against Anthropic's
// Messages API, parsing the block-indexed SSE stream directly.
type AnthropicProvider struct {
	model     string
	baseURL   string
	apiKey    string
	maxTokens int
	thinking  bool
}

// NewAnthropicProvider creates a new Anthropic provider instance.
// Returns an error if the API key is missing.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicProvider{
		model:     mdl,
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		thinking:  cfg.Thinking,
	}, nil
}

// Request body for POST /v1/messages.
type anthropicRequest struct {
	Model            string               `json:"model,omitempty"`
	AnthropicVersion string               `json:"anthropic_version,omitempty"` // Bedrock payloads only
	MaxTokens        int                  `json:"max_tokens"`
	Stream           bool                 `json:"stream,omitempty"`
	System           []anthropicTextBlock `json:"system,omitempty"`
	Messages         []anthropicMessage   `json:"messages"`
	Tools            []anthropicTool      `json:"tools,omitempty"`
	Thinking         *anthropicThinking   `json:"thinking,omitempty"`
}

type anthropicTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// anthropicEvent is one decoded wire event. The payload carries its own
// type discriminator, so the same struct decodes every event in the family:
// message_start, content_block_start/delta/stop, message_delta,
// message_stop, ping and error.
type anthropicEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	ContentBlock struct {
		Type string `json:"type"` // "text" | "tool_use" | "thinking"
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta struct {
		Type        string `json:"type"` // "text_delta" | "thinking_delta" | "input_json_delta"
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	return p.ChatWithTools(ctx, messages, nil, handlers)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
func (p *AnthropicProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	anthropicMessages, systemBlocks := convertToAnthropicMessages(messages)

	params := anthropicRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Stream:    true,
		System:    systemBlocks,
		Messages:  anthropicMessages,
		Tools:     ConvertToolsToAnthropic(tools),
	}
	if p.thinking {
		params.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: thinkingBudgetTokens}
	}

	resp, err := postJSON(ctx, "anthropic", p.baseURL+"/v1/messages", p.headers(), params)
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
			// Anthropic streams end when the connection closes.
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("anthropic stream read failed: %w", err)
		}

		done, err := dispatchAnthropicEvent(acc, []byte(frame.Data))
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	return acc.Message(), nil
}

// dispatchAnthropicEvent applies one decoded wire event to the accumulator.
// Payloads are self-describing, so Bedrock, which delivers the same event
// family inside its response stream without SSE framing, shares this
// dispatch. A malformed payload is skipped, never fatal. Returns done=true
// on message_stop.
func dispatchAnthropicEvent(acc *accumulator, data []byte) (bool, error) {
	var ev anthropicEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		slog.Debug("skipping malformed stream event", "provider", "anthropic", "error", err)
		return false, nil
	}

	switch ev.Type {
	case "content_block_start":
		if ev.ContentBlock.Type == "tool_use" {
			acc.StartToolCall(ev.Index, ev.ContentBlock.ID, ev.ContentBlock.Name)
		}

	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			acc.AppendText(ev.Delta.Text)
		case "thinking_delta":
			acc.AppendThinking(ev.Delta.Thinking)
		case "input_json_delta":
			acc.AppendToolArgs(ev.Index, ev.Delta.PartialJSON)
		}

	case "content_block_stop":
		// No-op for text and thinking blocks; finalizes tool_use blocks.
		acc.FinishToolCall(ev.Index)

	case "message_stop":
		return true, nil

	case "error":
		return false, fmt.Errorf("anthropic stream error: %s: %s", ev.Error.Type, ev.Error.Message)
	}

	// message_start, message_delta, ping: nothing to accumulate.
	return false, nil
}

// ListModels implements Provider.ListModels.
// Anthropic has no public models-list endpoint usable with every key, so we
// return a curated list of known Claude models.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	names := []string{
		"claude-sonnet-4-5-20250929",
		"claude-3-5-haiku-20241022",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}

	result := make([]model.ModelInfo, 0, len(names))
	for _, name := range names {
		result = append(result, model.ModelInfo{
			Name:         name,
			InternalName: name,
			Provider:     "anthropic",
		})
	}
	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
func (p *AnthropicProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by sending a minimal one-token request.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	params := anthropicRequest{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: model.RoleUser, Content: "ping"}},
	}

	resp, err := postJSON(ctx, "anthropic", p.baseURL+"/v1/messages", p.headers(), params)
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (p *AnthropicProvider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
}

// convertToAnthropicMessages converts chatkit messages to Anthropic format.
// Anthropic takes system prompts as a separate parameter, not in the
// messages array; system messages are returned as text blocks.
func convertToAnthropicMessages(messages []model.Message) ([]anthropicMessage, []anthropicTextBlock) {
	var systemBlocks []anthropicTextBlock
	anthropicMsgs := make([]anthropicMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropicTextBlock{Type: "text", Text: msg.Content})

		case model.RoleUser, model.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs, anthropicMessage{Role: msg.Role, Content: msg.Content})

		default:
			// Unknown roles are sent as user messages.
			anthropicMsgs = append(anthropicMsgs, anthropicMessage{Role: model.RoleUser, Content: msg.Content})
		}
	}

	return anthropicMsgs, systemBlocks
}
