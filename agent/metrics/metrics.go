package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	contractx "github.com/tanpawarit/parallel-analyst/agent/contract"
)

var (
	CapabilityCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyst_capability_calls_total",
			Help: "Capability provider calls by terminal status",
		},
		[]string{"capability", "status"},
	)

	CapabilityLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analyst_capability_latency_seconds",
			Help:    "Capability provider latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"capability"},
	)

	Pending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analyst_capability_pending",
			Help: "Capability calls an executor is still waiting on",
		},
	)

	PlanningOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyst_planning_outcomes_total",
			Help: "Planner outcomes (planned, fallback, rejected)",
		},
		[]string{"outcome"},
	)

	SynthesisOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyst_synthesis_outcomes_total",
			Help: "Synthesizer outcomes (oracle, fallback)",
		},
		[]string{"outcome"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyst_request_duration_seconds",
			Help:    "End-to-end request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

// ExecutorObserver records executor lifecycle events as Prometheus metrics.
// Complete and error events fire once per published result, so timeouts filled
// at the deadline are counted even if the provider goroutine is still running.
type ExecutorObserver struct{}

func (ExecutorObserver) OnStart(contractx.CapabilityID) {
	Pending.Inc()
}

func (ExecutorObserver) OnComplete(id contractx.CapabilityID, res contractx.ExecutionResult) {
	observe(id, res)
}

func (ExecutorObserver) OnError(id contractx.CapabilityID, res contractx.ExecutionResult) {
	observe(id, res)
}

func observe(id contractx.CapabilityID, res contractx.ExecutionResult) {
	Pending.Dec()
	CapabilityCalls.WithLabelValues(string(id), string(res.Status)).Inc()
	CapabilityLatency.WithLabelValues(string(id)).Observe(res.Latency.Seconds())
}
