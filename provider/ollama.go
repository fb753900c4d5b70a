package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"chatkit/model"
	"chatkit/ollama"
)

// OllamaProvider wraps ollama.Client to implement the Provider interface.
// Unlike the HTTP providers, the Ollama API delivers tool calls whole in a
// single response fragment, so no cross-chunk assembly happens here; each
// call goes straight into the accumulator complete.
type OllamaProvider struct {
	client   *ollama.Client
	thinking bool
}

// NewOllamaProvider creates a new Ollama provider instance.
// Returns an error if the base URL cannot be parsed.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	client, err := ollama.NewClient(cfg.BaseURL, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client:   client,
		thinking: cfg.Thinking,
	}, nil
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	return p.ChatWithTools(ctx, messages, nil, handlers)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
// Tools are silently dropped for models that do not support tool calling;
// sending them would make Ollama reject the whole request.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	var ollamaTools []api.Tool
	if len(tools) > 0 && p.client.SupportsToolCalling() {
		ollamaTools = ConvertToolsToOllama(tools)
	}

	acc := newAccumulator(handlers)

	callback := func(content, thinking string, toolCalls []api.ToolCall) error {
		if content != "" {
			acc.AppendText(content)
		}
		if thinking != "" {
			acc.AppendThinking(thinking)
		}
		for _, call := range toolCalls {
			acc.AddCompleteToolCall("", call.Function.Name, map[string]any(call.Function.Arguments))
		}
		return nil
	}

	err := p.client.ChatWithTools(ctx, convertToOllamaMessages(messages), ollamaTools, p.thinking, callback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return acc.Message(), nil
}

// ListModels implements Provider.ListModels (direct passthrough).
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

// GetModel implements Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// GetDisplayName implements Provider.GetDisplayName. Ollama model names
// carry no vendor prefix, so the display name is the model name.
func (p *OllamaProvider) GetDisplayName() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements Provider.Ping.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func convertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}
