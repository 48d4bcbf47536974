package oracle

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	llmx "github.com/tanpawarit/parallel-analyst/agent/llm"
	anthropicx "github.com/tanpawarit/parallel-analyst/pkg/anthropic"
	openrouterx "github.com/tanpawarit/parallel-analyst/pkg/openrouter"
)

// Factory builds generators for the configured backend, one per role and prompt.
type Factory struct {
	cfg llmx.Config
}

func NewFactory(cfg llmx.Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Factory{cfg: cfg}, nil
}

func (f *Factory) Generator(ctx context.Context, role llmx.Role, name, systemPrompt string) (contractx.Generator, error) {
	switch f.cfg.BackendKind() {
	case llmx.BackendOpenRouter:
		orCfg := f.cfg.OpenRouterFor(role)
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		return NewChatGenerator(ctx, chatModel, systemPrompt, name)

	case llmx.BackendOpenAI:
		orCfg := f.cfg.OpenRouterFor(role)
		return NewOpenAIGenerator(
			openrouterx.NewClient(orCfg),
			orCfg.Model,
			orCfg.Temperature,
			f.cfg.MaxCompletionToken,
			systemPrompt,
		)

	case llmx.BackendAnthropic:
		client, err := anthropicx.NewClient(f.cfg.AnthropicFor(role))
		if err != nil {
			return nil, fmt.Errorf("%w: create %s client: %v", contractx.ErrModelInvoke, role, err)
		}
		return NewAnthropicGenerator(client, systemPrompt)
	}
	return nil, fmt.Errorf("%w: unknown llm backend=%q", contractx.ErrValidation, f.cfg.Backend)
}

// Classifier builds the planner's classification oracle.
func (f *Factory) Classifier(ctx context.Context, systemPrompt string) (*Classifier, error) {
	gen, err := f.Generator(ctx, llmx.RolePlanner, "planner.classifier", systemPrompt)
	if err != nil {
		return nil, err
	}
	return NewClassifier(gen)
}
