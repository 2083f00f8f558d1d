package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Discovery, outcome and feedback metrics.
var (
	DiscoveryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_cache_total",
			Help:      "Discovery result cache operations by result",
		},
		[]string{"result"}, // hit, miss, expired, stale, error, set, invalidate
	)

	DiscoveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_duration_seconds",
			Help:      "Discovery request duration by cache outcome",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"cache"}, // hit, miss
	)

	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Outcome writes by operation and kind",
		},
		[]string{"op", "kind"},
	)

	FeedbackDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_dispatch_total",
			Help:      "Feedback events by delivery status",
		},
		[]string{"status"}, // queued, delivered, retried, failed, dropped
	)

	FeedbackQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feedback_queue_depth",
			Help:      "Feedback events waiting for a worker",
		},
	)
)

var registerDomain sync.Once

// RegisterDomainMetrics registers discovery, outcome and feedback metrics. Repeated calls are no-ops.
func RegisterDomainMetrics() {
	registerDomain.Do(func() {
		prometheus.MustRegister(DiscoveryCacheTotal, DiscoveryDuration, OutcomesTotal,
			FeedbackDispatchTotal, FeedbackQueueDepth)
	})
}
