package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"github.com/tanpawarit/parallel-analyst/agent/metrics"
	nodex "github.com/tanpawarit/parallel-analyst/agent/nodes/orchestrator"
	"github.com/tanpawarit/parallel-analyst/agent/planner"
	logx "github.com/tanpawarit/parallel-analyst/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tanpawarit/parallel-analyst/agent/agents/orchestrator"

var ErrInvalidRequest = nodex.ErrInvalidRequest

type Config struct {
	// Deadline bounds the parallel phase. Zero uses the executor default.
	Deadline time.Duration
}

// Deps are the collaborators one Orchestrator drives. All are required.
type Deps struct {
	Catalog     planner.Catalog
	Providers   map[contractx.CapabilityID]contractx.Provider
	Planner     nodex.Planner
	Executor    nodex.Executor
	Synthesizer nodex.Synthesizer
}

type Orchestrator struct {
	catalog   planner.Catalog
	providers map[contractx.CapabilityID]contractx.Provider
	planner   nodex.Planner
	executor  nodex.Executor
	synth     nodex.Synthesizer
	deadline  time.Duration

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Catalog == nil {
		return nil, errors.New("capability catalog is required")
	}
	if deps.Planner == nil {
		return nil, errors.New("planner is required")
	}
	if deps.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if deps.Synthesizer == nil {
		return nil, errors.New("synthesizer is required")
	}

	providers := make(map[contractx.CapabilityID]contractx.Provider, len(deps.Providers))
	for id, p := range deps.Providers {
		providers[id] = p
	}

	o := &Orchestrator{
		catalog:   deps.Catalog,
		providers: providers,
		planner:   deps.Planner,
		executor:  deps.Executor,
		synth:     deps.Synthesizer,
		deadline:  cfg.Deadline,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		newID:     uuid.NewString,
	}

	graphRunner, err := o.compileHandleGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Handle answers one request end to end. Only an empty request or a request that
// cannot be planned returns an error; any capability outcome still yields a Report.
func (o *Orchestrator) Handle(ctx context.Context, request string) (contractx.Report, error) {
	requestID := o.newID()
	ctx = logx.WithRequest(ctx, requestID)
	ctx, span := o.tracer.Start(ctx, "orchestrator.handle",
		trace.WithAttributes(attribute.String("request_id", requestID)),
	)
	defer span.End()

	start := o.now()
	defer func() {
		metrics.RequestDuration.Observe(o.now().Sub(start).Seconds())
	}()

	logger := zerolog.Ctx(ctx)
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		RequestID: requestID,
		Request:   request,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("request failed")
		return contractx.Report{}, err
	}

	span.SetAttributes(
		attribute.Int("findings", len(out.Report.Findings)),
		attribute.String("confidence_level", string(out.Report.ConfidenceLevel)),
		attribute.Bool("degraded", out.Report.Degraded),
		attribute.Bool("fallback", out.Report.Fallback),
	)
	logger.Info().
		Int("findings", len(out.Report.Findings)).
		Float64("confidence", out.Report.Confidence).
		Bool("degraded", out.Report.Degraded).
		Dur("elapsed", out.Report.Elapsed).
		Msg("request handled")
	return out.Report, nil
}
