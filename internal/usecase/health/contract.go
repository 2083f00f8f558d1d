package health

import "context"

// DBPinger checks store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// QueueChecker reports feedback queue occupancy.
type QueueChecker interface {
	QueueDepth() int
	QueueCapacity() int
}
