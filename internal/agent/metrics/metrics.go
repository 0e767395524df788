package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jan_sahayak_turns_total",
			Help: "Turns processed, by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jan_sahayak_turn_duration_seconds",
			Help:    "End-to-end turn latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"route"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jan_sahayak_stage_failures_total",
			Help: "Degraded pipeline stages, by route and stage",
		},
		[]string{"route", "stage"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jan_sahayak_cache_lookups_total",
			Help: "Memoization cache lookups, by namespace and result",
		},
		[]string{"namespace", "result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jan_sahayak_cache_evictions_total",
			Help: "Entries evicted by capacity pressure",
		},
		[]string{"namespace"},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jan_sahayak_tool_calls_total",
			Help: "Tool invocations requested by specialist models",
		},
		[]string{"route", "tool"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jan_sahayak_model_calls_total",
			Help: "Model gateway calls, by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	ActiveTurns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jan_sahayak_active_turns",
			Help: "Turns currently executing",
		},
	)
)

const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)
