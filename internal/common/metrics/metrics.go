package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_turns_total",
			Help: "Conversation turns processed, by phase reached and outcome",
		},
		[]string{"phase", "outcome"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopassist_turn_duration_seconds",
			Help:    "Duration of a conversation turn in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"phase"},
	)

	ModerationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_moderation_checks_total",
			Help: "Moderation verdicts, by text source and verdict",
		},
		[]string{"source", "verdict"},
	)

	CapabilityCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_capability_calls_total",
			Help: "Calls to external completion and moderation capabilities",
		},
		[]string{"capability", "status"},
	)

	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_matches_total",
			Help: "Catalog match runs, by outcome",
		},
		[]string{"outcome"},
	)

	FeatureCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_feature_cache_lookups_total",
			Help: "Feature classification cache lookups, by result",
		},
		[]string{"result"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_worker_jobs_completed_total",
			Help: "Total number of workflow jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopassist_worker_jobs_failed_total",
			Help: "Total number of workflow jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "shopassist_worker_job_duration_seconds",
			Help: "Duration of workflow job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopassist_worker_jobs_active",
			Help: "Number of active workflow jobs per worker",
		},
		[]string{"task_type"},
	)
)
