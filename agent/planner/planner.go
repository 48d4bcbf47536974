package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/agent/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultFocus = "Provide comprehensive analysis combining all perspectives"
	tracerName   = "github.com/tanpawarit/parallel-analyst/agent/planner"
)

const (
	outcomePlanned  = "planned"
	outcomeFallback = "fallback"
	outcomeRejected = "rejected"
)

// Catalog is the registry view the planner needs. *capability.Registry implements it.
type Catalog interface {
	Resolve(name string) (contractx.Capability, bool)
	Descriptors() []contractx.CapabilityDescriptor
	GeneralPurpose() (contractx.Capability, bool)
	Rank(id contractx.CapabilityID) int
	DefaultSubQuery(id contractx.CapabilityID, request string) string
}

type Planner struct {
	classifier contractx.Classifier
	tracer     trace.Tracer
}

func New(classifier contractx.Classifier) (*Planner, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: planner classifier is nil", contractx.ErrValidation)
	}
	return &Planner{
		classifier: classifier,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Decompose turns request into a Plan over registered, available capabilities.
// Classifier output is repaired rather than trusted. A request the classifier cannot
// handle falls back to the general-purpose capability; a classification that names
// only unknown capabilities fails with ErrPlanning.
func (p *Planner) Decompose(ctx context.Context, request string, catalog Catalog) (contractx.Plan, error) {
	ctx, span := p.tracer.Start(ctx, "planner.decompose")
	defer span.End()

	plan, outcome, err := p.decompose(ctx, strings.TrimSpace(request), catalog)
	metrics.PlanningOutcomes.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return contractx.Plan{}, err
	}
	span.SetAttributes(attribute.Int("capabilities", plan.Len()))
	return plan, nil
}

func (p *Planner) decompose(ctx context.Context, request string, catalog Catalog) (contractx.Plan, string, error) {
	logger := zerolog.Ctx(ctx)

	if request == "" {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: request is required", contractx.ErrValidation)
	}
	if catalog == nil {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: capability registry is nil", contractx.ErrValidation)
	}

	descriptors := catalog.Descriptors()
	if len(descriptors) == 0 {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: no capability is available", contractx.ErrPlanning)
	}

	cls, err := p.classifier.Classify(ctx, request, descriptors)
	if err != nil {
		logger.Warn().Err(err).Msg("classifier failed, using general-purpose fallback")
		return fallbackPlan(request, catalog)
	}

	names := candidateNames(cls)
	if len(names) == 0 {
		logger.Info().Msg("classifier selected nothing, using general-purpose fallback")
		return fallbackPlan(request, catalog)
	}

	selected := make([]contractx.CapabilityID, 0, len(names))
	seen := make(map[contractx.CapabilityID]struct{}, len(names))
	for _, name := range names {
		c, ok := catalog.Resolve(name)
		if !ok || !c.IsAvailable() {
			logger.Debug().Str("capability", name).Msg("discarding unknown or unavailable capability")
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		selected = append(selected, c.ID)
	}
	if len(selected) == 0 {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: no known capability among %q", contractx.ErrPlanning, names)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return catalog.Rank(selected[i]) < catalog.Rank(selected[j])
	})

	subQueries := resolveSubQueries(request, cls.SubQueries, seen, catalog)
	for _, id := range selected {
		if strings.TrimSpace(subQueries[id]) == "" {
			subQueries[id] = catalog.DefaultSubQuery(id, request)
		}
	}

	focus := strings.TrimSpace(cls.Focus)
	if focus == "" {
		focus = DefaultFocus
	}

	var priority contractx.CapabilityID
	if c, ok := catalog.Resolve(cls.Priority); ok {
		priority = c.ID
	}

	plan, err := contractx.NewPlan(selected, subQueries, focus, priority)
	if err != nil {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: %w", contractx.ErrPlanning, err)
	}

	logger.Debug().
		Strs("capabilities", idStrings(plan.Capabilities())).
		Str("priority", string(plan.Priority())).
		Msg("request decomposed")
	return plan, outcomePlanned, nil
}

func fallbackPlan(request string, catalog Catalog) (contractx.Plan, string, error) {
	general, ok := catalog.GeneralPurpose()
	if !ok || !general.IsAvailable() {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: request is unclassifiable and no general-purpose capability is available", contractx.ErrPlanning)
	}

	plan, err := contractx.NewPlan(
		[]contractx.CapabilityID{general.ID},
		map[contractx.CapabilityID]string{general.ID: catalog.DefaultSubQuery(general.ID, request)},
		DefaultFocus,
		"",
	)
	if err != nil {
		return contractx.Plan{}, outcomeRejected, fmt.Errorf("%w: %w", contractx.ErrPlanning, err)
	}
	return plan, outcomeFallback, nil
}

// resolveSubQueries maps classifier sub-query keys onto selected capability IDs.
// Keys are visited in sorted order and a key naming the ID exactly beats an
// alias of the same capability. A specialist sub-query that just restates the
// request is dropped so the capability's own default template applies.
func resolveSubQueries(request string, raw map[string]string, selected map[contractx.CapabilityID]struct{}, catalog Catalog) map[contractx.CapabilityID]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var generalID contractx.CapabilityID
	if g, ok := catalog.GeneralPurpose(); ok {
		generalID = g.ID
	}

	out := make(map[contractx.CapabilityID]string, len(selected))
	exact := make(map[contractx.CapabilityID]bool, len(selected))
	for _, name := range keys {
		q := strings.TrimSpace(raw[name])
		if q == "" {
			continue
		}
		c, ok := catalog.Resolve(name)
		if !ok {
			continue
		}
		if _, want := selected[c.ID]; !want {
			continue
		}
		if c.ID != generalID && strings.EqualFold(q, strings.TrimSpace(request)) {
			continue
		}
		isExact := string(c.ID) == name
		if _, taken := out[c.ID]; taken && (exact[c.ID] || !isExact) {
			continue
		}
		out[c.ID] = q
		exact[c.ID] = isExact
	}
	return out
}

// candidateNames lists selected names in classifier order, then names that only
// appear as sub-query keys, sorted.
func candidateNames(cls contractx.Classification) []string {
	out := make([]string, 0, len(cls.Capabilities)+len(cls.SubQueries))
	listed := make(map[string]struct{}, len(cls.Capabilities))
	for _, n := range cls.Capabilities {
		if strings.TrimSpace(n) == "" {
			continue
		}
		listed[n] = struct{}{}
		out = append(out, n)
	}

	extra := make([]string, 0, len(cls.SubQueries))
	for n, q := range cls.SubQueries {
		if _, ok := listed[n]; ok || strings.TrimSpace(n) == "" || strings.TrimSpace(q) == "" {
			continue
		}
		extra = append(extra, n)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func idStrings(ids []contractx.CapabilityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
