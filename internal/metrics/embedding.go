package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "matchloop"

// Embedding metrics cover the provider client, the vector cache in front of it
// and the token budget that guards it.
var (
	// EmbeddingCalls counts provider calls by outcome: "ok" or the failure
	// reason (api_error, empty_response, dimension_mismatch).
	EmbeddingCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_calls_total",
			Help:      "Embedding provider calls by outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	EmbeddingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_call_seconds",
			Help:      "Latency of successful embedding provider calls",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 9),
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "kind"}, // prompt, total
	)

	// EmbeddingBudget mirrors the numbers served by GET /api/v1/usage.
	EmbeddingBudget = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "embedding_budget_tokens",
			Help:      "Token budget state per period",
		},
		[]string{"provider", "period", "state"}, // used, remaining
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
)

var registerEmbedding sync.Once

// RegisterEmbeddingMetrics registers the embedding collectors. Repeated calls are no-ops.
func RegisterEmbeddingMetrics() {
	registerEmbedding.Do(func() {
		prometheus.MustRegister(EmbeddingCalls, EmbeddingLatency, EmbeddingTokens, EmbeddingBudget, EmbeddingCacheTotal)
	})
}
