// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	CandidatesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_candidates_evaluated_total",
			Help: "Candidates that survived normalization and were scored",
		},
	)

	CandidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_candidates_excluded_total",
			Help: "Candidates dropped or excluded, by diagnostic kind",
		},
		[]string{"kind"},
	)

	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_ranking_duration_seconds",
			Help:    "Duration of a ranking request, including catalog and cache",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"source"},
	)

	CatalogTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_catalog_truncated_total",
			Help: "Catalog loads that hit catalog.max_programs",
		},
	)

	ResultCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_result_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)

	ExplanationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_explanations_total",
			Help: "Comparison explanations by source (generator, fallback)",
		},
		[]string{"source"},
	)

	ExplanationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_explanation_attempts_total",
			Help: "Calls to the text generator by outcome",
		},
		[]string{"generator", "outcome"},
	)
)
