// Package metrics exposes the engine's Prometheus instruments. They are
// registered on the default registry and served by the API's /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_matches_found_total",
			Help: "Total matches produced per strategy, after postprocessing",
		},
		[]string{"strategy"},
	)

	LLMBatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesagent_llm_batches_failed_total",
			Help: "LLM batches that produced zero matches due to an error",
		},
		[]string{"reason"},
	)

	LLMResultsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesagent_llm_results_dropped_total",
			Help: "Decoded LLM result elements dropped by schema validation",
		},
	)

	LLMBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesagent_llm_batch_duration_seconds",
			Help:    "Duration of one LLM batch call including parsing",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	MatchingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesagent_matching_run_duration_seconds",
			Help:    "Duration of a full matching run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"strategy"},
	)
)
