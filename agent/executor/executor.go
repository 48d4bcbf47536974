package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultDeadline = 60 * time.Second
	tracerName      = "github.com/tanpawarit/parallel-analyst/agent/executor"
)

type Config struct {
	Deadline time.Duration `envconfig:"DEADLINE" split_words:"true" default:"60s"`
}

// Observer receives lifecycle events. All callbacks run on the goroutine that
// called Execute, never on a provider goroutine.
type Observer interface {
	OnStart(id contractx.CapabilityID)
	OnComplete(id contractx.CapabilityID, res contractx.ExecutionResult)
	OnError(id contractx.CapabilityID, res contractx.ExecutionResult)
}

type Option func(*Executor)

func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithDefaultDeadline(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.defaultDeadline = d
		}
	}
}

// Executor fans a plan out to its providers and joins the outcomes under one deadline.
type Executor struct {
	observers       []Observer
	tracer          trace.Tracer
	defaultDeadline time.Duration
	now             func() time.Time
}

func New(opts ...Option) *Executor {
	e := &Executor{
		tracer:          otel.Tracer(tracerName),
		defaultDeadline: DefaultDeadline,
		now:             time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs one task per planned capability and returns exactly one result per
// capability. It returns no later than deadline (plus scheduling overhead); tasks still
// running at that point are abandoned and recorded as timeouts. Provider errors and
// panics are converted to failure results and never propagate.
func (e *Executor) Execute(
	ctx context.Context,
	plan contractx.Plan,
	providers map[contractx.CapabilityID]contractx.Provider,
	deadline time.Duration,
) contractx.ResultSet {
	caps := plan.Capabilities()
	results := make(contractx.ResultSet, len(caps))
	if len(caps) == 0 {
		return results
	}
	if deadline <= 0 {
		deadline = e.defaultDeadline
	}

	logger := zerolog.Ctx(ctx)
	start := e.now()
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Buffered to the plan size so an abandoned task can always deliver and exit.
	inbox := make(chan contractx.ExecutionResult, len(caps))
	pending := make(map[contractx.CapabilityID]struct{}, len(caps))
	for _, id := range caps {
		pending[id] = struct{}{}
		e.notifyStart(id)
		go e.run(runCtx, id, plan.SubQuery(id), providers[id], inbox)
	}

	record := func(res contractx.ExecutionResult) {
		if _, ok := pending[res.Capability]; !ok {
			return
		}
		delete(pending, res.Capability)
		results[res.Capability] = res
		e.notifyDone(res)
		logResult(logger, res)
	}

join:
	for len(pending) > 0 {
		select {
		case res := <-inbox:
			record(res)
		case <-runCtx.Done():
			for {
				select {
				case res := <-inbox:
					record(res)
				default:
					break join
				}
			}
		}
	}

	if len(pending) > 0 {
		detail := timeoutDetail(runCtx, deadline)
		elapsed := e.now().Sub(start)
		for _, id := range caps {
			if _, ok := pending[id]; !ok {
				continue
			}
			record(contractx.ExecutionResult{
				Capability: id,
				Status:     contractx.StatusTimeout,
				Latency:    elapsed,
				Err:        detail,
			})
		}
	}

	logger.Debug().
		Int("capabilities", len(caps)).
		Int("succeeded", len(results.Successes())).
		Dur("elapsed", e.now().Sub(start)).
		Msg("parallel execution joined")

	return results
}

func (e *Executor) run(
	ctx context.Context,
	id contractx.CapabilityID,
	subQuery string,
	provider contractx.Provider,
	out chan<- contractx.ExecutionResult,
) {
	start := e.now()
	ctx, span := e.tracer.Start(ctx, "executor.capability",
		trace.WithAttributes(attribute.String("capability", string(id))),
	)
	defer span.End()

	res := e.call(ctx, subQuery, provider)
	res.Capability = id
	res.Latency = e.now().Sub(start)

	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.Int64("latency_ms", res.Latency.Milliseconds()),
	)
	if res.Status != contractx.StatusSuccess {
		span.SetStatus(codes.Error, res.Err)
	}

	out <- res
}

func (e *Executor) call(ctx context.Context, subQuery string, provider contractx.Provider) contractx.ExecutionResult {
	if provider == nil {
		return failure(fmt.Errorf("%w: no provider registered", contractx.ErrProviderFailure))
	}

	var (
		payload contractx.Payload
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() {
		payload, err = provider.Respond(ctx, subQuery)
	})
	if r := catcher.Recovered(); r != nil {
		return failure(fmt.Errorf("%w: panic: %v", contractx.ErrProviderFailure, r.Value))
	}

	// Anything that lands after the deadline is discarded, even a success.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contractx.ExecutionResult{
			Status: contractx.StatusTimeout,
			Err:    fmt.Sprintf("%v: %v", contractx.ErrProviderTimeout, ctxErr),
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return contractx.ExecutionResult{
				Status: contractx.StatusTimeout,
				Err:    fmt.Sprintf("%v: %v", contractx.ErrProviderTimeout, err),
			}
		}
		return failure(err)
	}

	return contractx.ExecutionResult{
		Status:  contractx.StatusSuccess,
		Payload: &payload,
	}
}

func failure(err error) contractx.ExecutionResult {
	return contractx.ExecutionResult{
		Status: contractx.StatusFailure,
		Err:    err.Error(),
	}
}

func timeoutDetail(ctx context.Context, deadline time.Duration) string {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Sprintf("%v: request canceled", contractx.ErrProviderTimeout)
	}
	return fmt.Sprintf("%v: no answer within %s", contractx.ErrProviderTimeout, deadline)
}

func (e *Executor) notifyStart(id contractx.CapabilityID) {
	for _, o := range e.observers {
		o.OnStart(id)
	}
}

func (e *Executor) notifyDone(res contractx.ExecutionResult) {
	for _, o := range e.observers {
		if res.Status == contractx.StatusSuccess {
			o.OnComplete(res.Capability, res)
		} else {
			o.OnError(res.Capability, res)
		}
	}
}

func logResult(logger *zerolog.Logger, res contractx.ExecutionResult) {
	if res.Status == contractx.StatusSuccess {
		logger.Debug().
			Str("capability", string(res.Capability)).
			Dur("latency", res.Latency).
			Msg("capability completed")
		return
	}
	logger.Warn().
		Str("capability", string(res.Capability)).
		Str("status", string(res.Status)).
		Dur("latency", res.Latency).
		Str("error", res.Err).
		Msg("capability degraded")
}
