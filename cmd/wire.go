package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/parallel-analyst/agent/agents/analyst"
	"github.com/tanpawarit/parallel-analyst/agent/agents/orchestrator"
	"github.com/tanpawarit/parallel-analyst/agent/capability"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/agent/executor"
	llmx "github.com/tanpawarit/parallel-analyst/agent/llm"
	"github.com/tanpawarit/parallel-analyst/agent/metrics"
	"github.com/tanpawarit/parallel-analyst/agent/oracle"
	"github.com/tanpawarit/parallel-analyst/agent/planner"
	promptx "github.com/tanpawarit/parallel-analyst/agent/prompt"
	"github.com/tanpawarit/parallel-analyst/agent/synthesizer"
	anthropicx "github.com/tanpawarit/parallel-analyst/pkg/anthropic"
	configx "github.com/tanpawarit/parallel-analyst/pkg/config"
	"github.com/tanpawarit/parallel-analyst/pkg/places"
	"github.com/tanpawarit/parallel-analyst/pkg/reviewdb"
	"github.com/tanpawarit/parallel-analyst/pkg/serpapi"
)

const (
	reviewCapability = "review_analyst"
	marketCapability = "market_analyst"
)

// sources holds the retrieval backends. A backend whose config is empty stays nil
// and the capability that needs it is reported unavailable.
type sources struct {
	reviewCfg reviewdb.Config
	serpCfg   serpapi.Config
	placesCfg places.Config

	reviews *reviewdb.Store
	news    *serpapi.Client
	dealers *places.Client
}

func loadSources() (*sources, error) {
	reviewCfg, err := configx.New[reviewdb.Config]("REVIEWDB")
	if err != nil {
		return nil, err
	}
	serpCfg, err := configx.New[serpapi.Config]("SERPAPI")
	if err != nil {
		return nil, err
	}
	placesCfg, err := configx.New[places.Config]("PLACES")
	if err != nil {
		return nil, err
	}

	s := &sources{reviewCfg: *reviewCfg, serpCfg: *serpCfg, placesCfg: *placesCfg}
	if s.reviewCfg.Enabled() {
		if s.reviews, err = reviewdb.Open(s.reviewCfg); err != nil {
			return nil, fmt.Errorf("open review store: %w", err)
		}
	}
	if s.serpCfg.Enabled() {
		if s.news, err = serpapi.NewClient(s.serpCfg); err != nil {
			s.Close()
			return nil, fmt.Errorf("create news client: %w", err)
		}
	}
	if s.placesCfg.Enabled() {
		if s.dealers, err = places.NewClient(s.placesCfg); err != nil {
			s.Close()
			return nil, fmt.Errorf("create places client: %w", err)
		}
	}
	return s, nil
}

func (s *sources) Close() {
	if s.reviews != nil {
		if err := s.reviews.Close(); err != nil {
			log.Warn().Err(err).Msg("close review store")
		}
	}
}

func (s *sources) registry() (*capability.Registry, error) {
	return capability.LoadDefault(
		capability.WithAvailability(reviewCapability, func() bool { return s.reviews != nil }),
		capability.WithAvailability(marketCapability, func() bool { return s.news != nil }),
	)
}

func (s *sources) deps(gens map[analyst.Kind]contractx.Generator) analyst.Deps {
	deps := analyst.Deps{Generators: gens}
	// Typed nils would defeat the analysts' nil checks.
	if s.reviews != nil {
		deps.Reviews = s.reviews
	}
	if s.news != nil {
		deps.News = s.news
	}
	if s.dealers != nil {
		deps.Dealers = s.dealers
	}
	return deps
}

func loadLLMConfig() (llmx.Config, error) {
	cfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return llmx.Config{}, err
	}
	anthropicCfg, err := configx.New[anthropicx.Config]("ANTHROPIC")
	if err != nil {
		return llmx.Config{}, err
	}
	cfg.Anthropic = *anthropicCfg
	return *cfg, nil
}

// buildOrchestrator wires the whole engine from environment configuration.
// The returned cleanup releases the retrieval backends.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, func(), error) {
	prompts := promptx.LoadPromptSet()
	if err := prompts.Validate(); err != nil {
		return nil, nil, err
	}

	llmCfg, err := loadLLMConfig()
	if err != nil {
		return nil, nil, err
	}
	execCfg, err := configx.New[executor.Config]("EXECUTOR")
	if err != nil {
		return nil, nil, err
	}
	synthCfg, err := configx.New[synthesizer.Config]("SYNTHESIZER")
	if err != nil {
		return nil, nil, err
	}

	factory, err := oracle.NewFactory(llmCfg)
	if err != nil {
		return nil, nil, err
	}

	src, err := loadSources()
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (*orchestrator.Orchestrator, func(), error) {
		src.Close()
		return nil, nil, err
	}

	reg, err := src.registry()
	if err != nil {
		return fail(err)
	}

	analystPrompts := map[analyst.Kind]string{
		analyst.KindReview:   prompts.Review,
		analyst.KindMarket:   prompts.Market,
		analyst.KindPurchase: prompts.Purchase,
		analyst.KindGeneral:  prompts.General,
	}
	gens := make(map[analyst.Kind]contractx.Generator, len(analystPrompts))
	for kind, system := range analystPrompts {
		gen, err := factory.Generator(ctx, llmx.RoleAnalyst, "analyst."+string(kind), system)
		if err != nil {
			return fail(fmt.Errorf("build %s analyst: %w", kind, err))
		}
		gens[kind] = gen
	}

	providers, err := analyst.BuildProviders(reg.Available(), src.deps(gens))
	if err != nil {
		log.Warn().Err(err).Msg("some capabilities have no provider")
	}

	classifier, err := factory.Classifier(ctx, prompts.Classifier)
	if err != nil {
		return fail(err)
	}
	p, err := planner.New(classifier)
	if err != nil {
		return fail(err)
	}

	synthGen, err := factory.Generator(ctx, llmx.RoleSynthesizer, "synthesizer", prompts.Synthesizer)
	if err != nil {
		return fail(err)
	}
	synth, err := synthesizer.New(synthGen, reg, synthesizer.WithTimeout(synthCfg.Timeout))
	if err != nil {
		return fail(err)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Catalog:   reg,
		Providers: providers,
		Planner:   p,
		Executor: executor.New(
			executor.WithObserver(metrics.ExecutorObserver{}),
			executor.WithDefaultDeadline(execCfg.Deadline),
		),
		Synthesizer: synth,
	}, orchestrator.Config{Deadline: execCfg.Deadline})
	if err != nil {
		return fail(err)
	}

	log.Info().
		Strs("available", availableIDs(reg)).
		Str("backend", string(llmCfg.BackendKind())).
		Msg("analyst engine ready")
	return orch, src.Close, nil
}

func availableIDs(reg *capability.Registry) []string {
	caps := reg.Available()
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		out = append(out, string(c.ID))
	}
	return out
}
