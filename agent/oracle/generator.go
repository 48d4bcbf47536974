package oracle

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	anthropicx "github.com/tanpawarit/parallel-analyst/pkg/anthropic"
)

var (
	_ contractx.Generator = (*ChatGenerator)(nil)
	_ contractx.Generator = (*OpenAIGenerator)(nil)
	_ contractx.Generator = (*AnthropicGenerator)(nil)
)

// ChatGenerator runs an eino chat model behind a fixed system prompt.
type ChatGenerator struct {
	runner compose.Runnable[map[string]any, string]
}

func NewChatGenerator(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	name string,
) (*ChatGenerator, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: generator=%s", contractx.ErrPromptMissing, name)
	}
	runner, err := compileTextGraph(ctx, chatModel, systemPrompt, name+".text_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile generator=%s: %v", contractx.ErrModelInvoke, name, err)
	}
	return &ChatGenerator{runner: runner}, nil
}

func (g *ChatGenerator) Generate(ctx context.Context, input string) (string, error) {
	out, err := g.runner.Invoke(ctx, map[string]any{
		"input": input,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

// OpenAIGenerator calls chat completions directly, without an eino graph.
type OpenAIGenerator struct {
	client       *openaisdk.Client
	model        string
	temperature  float32
	maxTokens    int
	systemPrompt string
}

func NewOpenAIGenerator(
	client *openaisdk.Client,
	model string,
	temperature float32,
	maxTokens int,
	systemPrompt string,
) (*OpenAIGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: openai model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: openai generator", contractx.ErrPromptMissing)
	}
	return &OpenAIGenerator{
		client:       client,
		model:        strings.TrimSpace(model),
		temperature:  temperature,
		maxTokens:    maxTokens,
		systemPrompt: systemPrompt,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, input string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(g.systemPrompt),
			openaisdk.UserMessage(input),
		},
		Temperature: openaisdk.Float(float64(g.temperature)),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(g.maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrSchemaViolation)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: completion is empty", contractx.ErrSchemaViolation)
	}
	return text, nil
}

// AnthropicGenerator sends each input as a single user turn to Claude.
type AnthropicGenerator struct {
	client       *anthropicx.Client
	systemPrompt string
}

func NewAnthropicGenerator(client *anthropicx.Client, systemPrompt string) (*AnthropicGenerator, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: anthropic client is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: anthropic generator", contractx.ErrPromptMissing)
	}
	return &AnthropicGenerator{client: client, systemPrompt: systemPrompt}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, input string) (string, error) {
	text, err := g.client.Complete(ctx, g.systemPrompt, input)
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	return text, nil
}
