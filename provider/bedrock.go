package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatkit/model"
)

const (
	defaultBedrockRegion = "us-east-1"
	defaultBedrockModel  = "anthropic.claude-3-5-sonnet-20241022-v2:0"

	// bedrockAnthropicVersion goes into the invocation payload; Bedrock
	// requires it instead of the anthropic-version header.
	bedrockAnthropicVersion = "bedrock-2023-05-31"
)

// BedrockProvider implements the Provider interface against AWS Bedrock's
// InvokeModelWithResponseStream API for Anthropic models. Bedrock delivers
// the same event family as Anthropic's Messages API, one JSON payload per
// response-stream chunk, so the stream is fed to the shared Anthropic event
// dispatcher. Credentials come from the standard AWS chain (env, shared
// config, IMDS).
type BedrockProvider struct {
	client    *bedrockruntime.Client
	model     string
	region    string
	maxTokens int
	thinking  bool
}

// NewBedrockProvider creates a new Bedrock provider instance.
// Returns an error if the AWS configuration cannot be resolved.
func NewBedrockProvider(cfg Config) (*BedrockProvider, error) {
	region := cfg.Region
	if region == "" {
		region = defaultBedrockRegion
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = defaultBedrockModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		model:     mdl,
		region:    region,
		maxTokens: maxTokens,
		thinking:  cfg.Thinking,
	}, nil
}

// Chat implements Provider.Chat by delegating to ChatWithTools with no tools.
func (p *BedrockProvider) Chat(ctx context.Context, messages []model.Message, handlers model.StreamHandlers) (*model.Message, error) {
	return p.ChatWithTools(ctx, messages, nil, handlers)
}

// ChatWithTools implements Provider.ChatWithTools with streaming support.
func (p *BedrockProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, handlers model.StreamHandlers) (*model.Message, error) {
	payload, err := json.Marshal(p.buildPayload(messages, tools, p.maxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("bedrock invoke failed: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	acc := newAccumulator(handlers)

	for event := range stream.Events() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, ok := event.(*brtypes.ResponseStreamMemberChunk)
		if !ok {
			continue
		}

		done, err := dispatchAnthropicEvent(acc, chunk.Value.Bytes)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("bedrock stream failed: %w", err)
	}

	return acc.Message(), nil
}

// buildPayload assembles the Anthropic-on-Bedrock invocation body. Bedrock
// takes the model from the invocation ARN and the stream flag from the API
// call, so neither appears in the payload.
func (p *BedrockProvider) buildPayload(messages []model.Message, tools []mcptypes.Tool, maxTokens int) anthropicRequest {
	anthropicMessages, systemBlocks := convertToAnthropicMessages(messages)

	payload := anthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        maxTokens,
		System:           systemBlocks,
		Messages:         anthropicMessages,
		Tools:            ConvertToolsToAnthropic(tools),
	}
	if p.thinking {
		payload.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: thinkingBudgetTokens}
	}
	return payload
}

// ListModels implements Provider.ListModels.
// Listing foundation models needs the separate Bedrock control-plane API
// and extra IAM permissions, so we return a curated list of the Anthropic
// model IDs this adapter supports.
func (p *BedrockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	names := []string{
		"anthropic.claude-3-5-sonnet-20241022-v2:0",
		"anthropic.claude-3-5-haiku-20241022-v1:0",
		"anthropic.claude-3-opus-20240229-v1:0",
		"anthropic.claude-3-haiku-20240307-v1:0",
	}

	result := make([]model.ModelInfo, 0, len(names))
	for _, name := range names {
		result = append(result, model.ModelInfo{
			Name:         name,
			InternalName: name,
			Provider:     "bedrock",
		})
	}
	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *BedrockProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
func (p *BedrockProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *BedrockProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by sending a minimal one-token request.
func (p *BedrockProvider) Ping(ctx context.Context) error {
	payload, err := json.Marshal(anthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        1,
		Messages:         []anthropicMessage{{Role: model.RoleUser, Content: "ping"}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return fmt.Errorf("Bedrock ping failed: %w", err)
	}
	return nil
}
