package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vantage_analyses_started_total",
			Help: "Total number of location analyses submitted",
		},
	)

	// AnalysesCompleted is labelled by outcome: complete, partial, expired.
	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_analyses_completed_total",
			Help: "Total number of location analyses that left the pipeline",
		},
		[]string{"status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vantage_analysis_duration_seconds",
			Help:    "Time from submission to persisted record",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	PendingAnalyses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vantage_pending_analyses",
			Help: "Number of analyses awaiting scout responses",
		},
	)

	ScoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "vantage_scout_duration_seconds",
			Help: "Duration of scout scoring in seconds",
		},
		[]string{"scout"},
	)

	LookupCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_lookup_cache_total",
			Help: "Cache-aside results for external lookups",
		},
		[]string{"cache", "result"},
	)

	ResponsesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vantage_responses_dropped_total",
			Help: "Scout responses that could not be correlated",
		},
		[]string{"reason"},
	)
)
