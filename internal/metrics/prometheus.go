// Package metrics defines the Prometheus series exported by the service:
// ingestion outcomes, query latency, provider failover, rate-limit
// rejections, and widget token validation outcomes.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "knowbase_ingestion_duration_seconds",
			Help:    "Time to take a source from uploaded to indexed or failed",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"source_type", "outcome"},
	)

	IngestionOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowbase_ingestion_outcome_total",
			Help: "Total sources ingested, by terminal status",
		},
		[]string{"source_type", "outcome"},
	)

	ChunksPerSource = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knowbase_chunks_per_source",
			Help:    "Number of chunks produced per indexed source",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "knowbase_query_duration_seconds",
			Help:    "End-to-end query latency, embed through generate",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"caller"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowbase_query_total",
			Help: "Total queries answered, by outcome",
		},
		[]string{"caller", "outcome"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knowbase_query_confidence",
			Help:    "Distribution of computed answer confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RetrievedChunksPerQuery = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knowbase_retrieved_chunks_per_query",
			Help:    "Number of chunks retrieved above min_score per query",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	ProviderFailoverTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowbase_provider_failover_total",
			Help: "Total times a fallback provider was used after the primary failed",
		},
		[]string{"concern", "from_provider", "to_provider"},
	)

	ProviderTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowbase_llm_tokens_total",
			Help: "Total LLM tokens consumed",
		},
		[]string{"provider", "kind"},
	)

	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "knowbase_rate_limit_rejected_total",
			Help: "Total requests rejected by the rate limiter",
		},
	)

	WidgetTokenValidationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowbase_widget_token_validation_total",
			Help: "Total widget token validations, by outcome",
		},
		[]string{"outcome"},
	)
)

func Init() {
	prometheus.MustRegister(
		IngestionDuration,
		IngestionOutcomeTotal,
		ChunksPerSource,
		QueryDuration,
		QueryTotal,
		ConfidenceScore,
		RetrievedChunksPerQuery,
		ProviderFailoverTotal,
		ProviderTokensUsed,
		RateLimitRejectedTotal,
		WidgetTokenValidationTotal,
	)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
