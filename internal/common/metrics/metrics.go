// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AsksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizkid_asks_total",
			Help: "Total number of answered queries by intent",
		},
		[]string{"intent"},
	)

	AskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wizkid_ask_duration_seconds",
			Help:    "Time from request to final event",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"intent"},
	)

	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizkid_events_emitted_total",
			Help: "Total number of stream events by type",
		},
		[]string{"event"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizkid_provider_calls_total",
			Help: "Calls to external providers by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wizkid_provider_latency_seconds",
			Help:    "Latency of external provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	SynthesisFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizkid_synthesis_fallbacks_total",
			Help: "Synthesizer attempts abandoned by reason",
		},
		[]string{"vendor", "reason"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// Outcome labels for ProviderCalls.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)
