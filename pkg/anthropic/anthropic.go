// Package anthropic wraps the Anthropic Messages API for single-turn text completion.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var ErrEmptyCompletion = errors.New("anthropic: completion has no text")

type Config struct {
	APIKey    string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL   string        `envconfig:"BASE_URL" split_words:"true"`
	Model     string        `envconfig:"MODEL" split_words:"true" default:"claude-sonnet-4-20250514"`
	MaxTokens int64         `envconfig:"MAX_TOKENS" split_words:"true" default:"2000"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	// MaxRetries is left to the SDK default when negative.
	MaxRetries int `envconfig:"MAX_RETRIES" split_words:"true" default:"-1"`
}

type Client struct {
	inner     anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int64
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := anthropicsdk.Model(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = anthropicsdk.ModelClaudeSonnet4_20250514
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	return &Client{
		inner:     anthropicsdk.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *Client) Model() anthropicsdk.Model {
	return c.model
}

// Complete sends one user turn under system and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	params := anthropicsdk.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(user)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: messages.new: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			b.WriteString(variant.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
