package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	anthropicx "github.com/tanpawarit/parallel-analyst/pkg/anthropic"
	openrouterx "github.com/tanpawarit/parallel-analyst/pkg/openrouter"
)

// Backend selects which client family serves the oracles.
type Backend string

const (
	// BackendOpenRouter runs the oracles as eino graphs over an OpenAI-compatible chat model.
	BackendOpenRouter Backend = "openrouter"
	// BackendOpenAI calls chat completions directly through openai-go.
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
)

// Role is the job an oracle does in a request. Each role may use its own model.
type Role string

const (
	RolePlanner     Role = "planner"
	RoleSynthesizer Role = "synthesizer"
	RoleAnalyst     Role = "analyst"
)

type Config struct {
	Backend            string        `envconfig:"BACKEND" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	PlannerModel           string  `envconfig:"PLANNER_MODEL" split_words:"true"`
	SynthesizerModel       string  `envconfig:"SYNTHESIZER_MODEL" split_words:"true"`
	AnalystModel           string  `envconfig:"ANALYST_MODEL" split_words:"true"`
	PlannerTemperature     float32 `envconfig:"PLANNER_TEMPERATURE" split_words:"true" default:"0"`
	SynthesizerTemperature float32 `envconfig:"SYNTHESIZER_TEMPERATURE" split_words:"true" default:"-1"`
	AnalystTemperature     float32 `envconfig:"ANALYST_TEMPERATURE" split_words:"true" default:"-1"`

	// Anthropic is loaded separately under the ANTHROPIC_ prefix.
	Anthropic anthropicx.Config `ignored:"true"`
}

func (c Config) BackendKind() Backend {
	switch b := Backend(strings.ToLower(strings.TrimSpace(c.Backend))); b {
	case "":
		return BackendOpenRouter
	default:
		return b
	}
}

func (c Config) Validate() error {
	switch c.BackendKind() {
	case BackendOpenRouter, BackendOpenAI:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
		}
	case BackendAnthropic:
		if strings.TrimSpace(c.Anthropic.APIKey) == "" {
			return fmt.Errorf("%w: anthropic api key is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown llm backend=%q", contractx.ErrValidation, c.Backend)
	}
	return nil
}

// ModelFor resolves the model name and temperature for role, falling back to the defaults.
func (c Config) ModelFor(role Role) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	var override string
	var overrideTemp float32 = -1
	switch role {
	case RolePlanner:
		override, overrideTemp = c.PlannerModel, c.PlannerTemperature
	case RoleSynthesizer:
		override, overrideTemp = c.SynthesizerModel, c.SynthesizerTemperature
	case RoleAnalyst:
		override, overrideTemp = c.AnalystModel, c.AnalystTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}
	if overrideTemp >= 0 {
		temp = overrideTemp
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName, temp := c.ModelFor(role)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// AnthropicFor applies the role's model override when it names a Claude model.
func (c Config) AnthropicFor(role Role) anthropicx.Config {
	conf := c.Anthropic
	modelName, _ := c.ModelFor(role)
	if strings.HasPrefix(modelName, "claude-") {
		conf.Model = modelName
	}
	return conf
}
