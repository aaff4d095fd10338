package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counts how many posts have been analyzed in total.
var PostsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_posts_analyzed_total",
	Help: "Total number of posts analyzed successfully",
})

// Counts analyses answered straight from the result cache.
var CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_cache_misses_total",
	Help: "Total number of analysis requests not served from the result cache",
})

var CacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_cache_hits_total",
	Help: "Total number of analyses served from the result cache",
})

// Counts how many language detections could not be resolved.
var LanguageDetectionFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_language_detection_failures_total",
	Help: "Total number of texts whose language could not be identified",
})

// Tracks the distribution of final risk scores.
var RiskScores = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "threatlens_risk_score",
	Help:    "Distribution of aggregate risk scores",
	Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
})

// Counts results by severity band.
var ResultsBySeverity = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "threatlens_results_by_severity_total",
		Help: "Total number of analysis results per severity band",
	},
	[]string{"severity"},
)

// Measures how many results have been exported to the archive.
var ResultsArchived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_results_archived_total",
	Help: "Total number of results flushed to the archive store",
})

// Captures how many times we performed a bulk flush operation.
var BulkFlushes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_bulk_flushes_total",
	Help: "Total number of times results were flushed in bulk to the archive store",
})

// Captures how many times a bulk request failed.
var BulkFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "threatlens_bulk_failures_total",
	Help: "Total number of bulk requests that failed",
})

// External NER service metrics
var (
	NerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatlens_ner_errors_total",
		Help: "Total number of failed requests to the NER service",
	})

	NerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threatlens_ner_latency_seconds",
		Help:    "Time taken to process NER requests",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // From 100ms to ~100s
	})

	NerBatchCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatlens_ner_batch_count_total",
		Help: "Total number of batches sent to the NER service",
	})

	NerBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threatlens_ner_batch_size",
		Help:    "Size of batches sent to the NER service",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

// LLM enrichment metrics
var (
	EnrichmentRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatlens_enrichment_requests_total",
		Help: "Total number of requests sent to the LLM enrichment service",
	})

	EnrichmentErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threatlens_enrichment_errors_total",
		Help: "Total number of failed LLM enrichment requests",
	})

	EnrichmentLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threatlens_enrichment_latency_seconds",
		Help:    "Time taken to complete LLM enrichment requests",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

var CircuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "threatlens_circuit_breaker_state",
		Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
	},
	[]string{"service"},
)
