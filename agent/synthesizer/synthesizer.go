package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/agent/metrics"
)

const (
	outcomeOracle   = "oracle"
	outcomeFallback = "fallback"
)

var errNoSuccesses = errors.New("no capability answered")

type Config struct {
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"45s"`
}

// Input is everything the synthesizer needs about one request.
type Input struct {
	Request  string
	Focus    string
	Priority contractx.CapabilityID
	Results  contractx.ResultSet
}

type Option func(*Synthesizer)

// WithTimeout bounds the generation oracle call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		s.timeout = d
	}
}

type Synthesizer struct {
	gen     contractx.Generator
	catalog Catalog
	timeout time.Duration
}

func New(gen contractx.Generator, catalog Catalog, opts ...Option) (*Synthesizer, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: synthesizer generator is nil", contractx.ErrValidation)
	}
	s := &Synthesizer{gen: gen, catalog: catalog}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Synthesize merges results into a Report. It never fails: when the generation
// oracle errors or its output is rejected, the summary is rendered from the
// structured findings instead and Report.Fallback is set. The oracle is not retried.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) contractx.Report {
	logger := zerolog.Ctx(ctx)

	findings := BuildFindings(in.Results, in.Priority, s.catalog)
	caveats := Caveats(findings)
	score := Confidence(in.Results)

	report := contractx.Report{
		Request:         strings.TrimSpace(in.Request),
		Findings:        findings,
		Caveats:         caveats,
		Confidence:      score,
		ConfidenceLevel: Level(score),
		Degraded:        len(caveats) > 0,
	}

	summary, err := s.generate(ctx, in, findings)
	if err != nil {
		logger.Warn().Err(err).Msg("using templated synthesis")
		metrics.SynthesisOutcomes.WithLabelValues(outcomeFallback).Inc()
		report.Summary = Fallback(in, findings)
		report.Fallback = true
		return report
	}

	metrics.SynthesisOutcomes.WithLabelValues(outcomeOracle).Inc()
	report.Summary = summary
	return report
}

func (s *Synthesizer) generate(ctx context.Context, in Input, findings []contractx.Finding) (string, error) {
	ok := successful(findings)
	if len(ok) == 0 {
		return "", errNoSuccesses
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.gen.Generate(ctx, BuildContext(in, findings))
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrSynthesis, err)
	}
	text = strings.TrimSpace(text)
	if err := Validate(text, ok); err != nil {
		return "", err
	}
	return text, nil
}

// Fallback renders a summary purely from structured findings.
func Fallback(in Input, findings []contractx.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analysis of: %s\n", strings.TrimSpace(in.Request))
	if focus := strings.TrimSpace(in.Focus); focus != "" {
		fmt.Fprintf(&b, "Focus: %s\n", focus)
	}

	ok := successful(findings)
	if len(ok) == 0 {
		b.WriteString("\nNone of the consulted analysts could answer this request.\n")
	} else {
		b.WriteString("\n")
		for _, f := range ok {
			fmt.Fprintf(&b, "%s: %s\n", f.Name, strings.TrimSpace(f.Summary))
		}
	}

	if caveats := Caveats(findings); len(caveats) > 0 {
		b.WriteString("\nCaveats:\n")
		for _, c := range caveats {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
