// Package feedback ships outcome events to the learning system off the request path.
package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/metrics"
)

// Defaults for Config fields left at zero.
const (
	DefaultQueueSize      = 1024
	DefaultWorkers        = 4
	DefaultMaxAttempts    = 5
	DefaultAttemptTimeout = 5 * time.Second
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
)

// Config tunes the dispatcher.
type Config struct {
	QueueSize      int
	Workers        int
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RatePerSecond caps outbound deliveries across all workers. Zero means unlimited.
	RatePerSecond float64
	Burst         int
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

// Dispatcher queues events and delivers them with bounded retries.
// Dispatch never blocks and never fails; a full queue drops the event.
type Dispatcher struct {
	sink    Sink
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger

	queue  chan outcome.Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Dispatcher and starts its workers.
func New(sink Sink, cfg Config, logger *zap.Logger) *Dispatcher {
	cfg.applyDefaults()

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sink:    sink,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
		queue:   make(chan outcome.Event, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	d.wg.Add(cfg.Workers)
	for range cfg.Workers {
		go d.work()
	}
	return d
}

// Dispatch enqueues e for delivery.
func (d *Dispatcher) Dispatch(e outcome.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}

	select {
	case d.queue <- e:
		metrics.FeedbackDispatchTotal.WithLabelValues("queued").Inc()
		metrics.FeedbackQueueDepth.Set(float64(len(d.queue)))
	default:
		d.drop(e, "queue full")
	}
}

// QueueDepth returns the number of events waiting for a worker.
func (d *Dispatcher) QueueDepth() int { return len(d.queue) }

// QueueCapacity returns the queue size.
func (d *Dispatcher) QueueCapacity() int { return cap(d.queue) }

// Close stops accepting events and waits for the queue to drain. When ctx expires first,
// in-flight deliveries are cancelled and the remaining events are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for e := range d.queue {
		metrics.FeedbackQueueDepth.Set(float64(len(d.queue)))
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e outcome.Event) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.cfg.InitialBackoff
	eb.MaxInterval = d.cfg.MaxBackoff

	attempt := func() (struct{}, error) {
		if err := d.limiter.Wait(d.ctx); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.AttemptTimeout)
		defer cancel()

		err := d.sink.Deliver(ctx, e)
		if errors.Is(err, domain.ErrFeedbackRejected) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	notify := func(err error, wait time.Duration) {
		metrics.FeedbackDispatchTotal.WithLabelValues("retried").Inc()
		d.logger.Debug("feedback delivery retry",
			zap.String("outcome_id", e.OutcomeID),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	_, err := backoff.Retry(d.ctx, attempt,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(d.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		metrics.FeedbackDispatchTotal.WithLabelValues("failed").Inc()
		d.logger.Warn("feedback delivery failed",
			zap.String("outcome_id", e.OutcomeID),
			zap.String("introduction_id", e.IntroductionID),
			zap.Error(err),
		)
		return
	}
	metrics.FeedbackDispatchTotal.WithLabelValues("delivered").Inc()
}

func (d *Dispatcher) drop(e outcome.Event, reason string) {
	metrics.FeedbackDispatchTotal.WithLabelValues("dropped").Inc()
	d.logger.Warn("feedback event dropped",
		zap.String("outcome_id", e.OutcomeID),
		zap.String("reason", reason),
	)
}
