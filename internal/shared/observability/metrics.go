package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compgraph_sessions_total",
		Help: "Total number of analysis sessions by outcome.",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "compgraph_active_sessions",
		Help: "Number of analysis sessions currently streaming.",
	})

	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "compgraph_session_seconds",
		Help:    "Wall time of a full analysis session.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	FilesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compgraph_files_analyzed_total",
		Help: "Total number of candidate files that produced a component.",
	})

	FilesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compgraph_files_skipped_total",
		Help: "Total number of candidate files skipped during extraction.",
	}, []string{"reason"})

	ComponentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compgraph_components_total",
		Help: "Total number of extracted components by type.",
	}, []string{"type"})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "compgraph_extraction_seconds",
		Help:    "Time spent classifying and extracting a single file.",
		Buckets: prometheus.DefBuckets,
	})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compgraph_upstream_seconds",
		Help:    "Latency of calls to the repository hosting API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "status"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compgraph_cache_lookups_total",
		Help: "Result cache lookups by result.",
	}, []string{"result"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compgraph_rate_limited_total",
		Help: "Total number of analysis requests rejected by the rate limiter.",
	})
)
