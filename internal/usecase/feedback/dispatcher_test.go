package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/metrics"
)

// --- Mocks ---

type sinkFunc func(ctx context.Context, e outcome.Event) error

func (f sinkFunc) Deliver(ctx context.Context, e outcome.Event) error { return f(ctx, e) }

type recordingSink struct {
	mu   sync.Mutex
	got  []string
	fail func(attempt int) error
	n    atomic.Int32
}

func (s *recordingSink) Deliver(_ context.Context, e outcome.Event) error {
	n := int(s.n.Add(1))
	if s.fail != nil {
		if err := s.fail(n); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.got = append(s.got, e.OutcomeID)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) delivered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func fastConfig() Config {
	return Config{
		QueueSize:      8,
		Workers:        2,
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func event(id string) outcome.Event {
	return outcome.Event{OutcomeID: id, IntroductionID: "intro-" + id, FeedbackScore: 1}
}

func status(s string) float64 {
	return testutil.ToFloat64(metrics.FeedbackDispatchTotal.WithLabelValues(s))
}

func closeNow(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

// --- Tests ---

func TestDispatch_DeliversEverythingBeforeClose(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, fastConfig(), zap.NewNop())

	for i := range 5 {
		d.Dispatch(event(fmt.Sprint(i)))
	}
	closeNow(t, d)

	assert.ElementsMatch(t, []string{"0", "1", "2", "3", "4"}, sink.delivered())
}

func TestDispatch_RetriesTransientFailures(t *testing.T) {
	retried := status("retried")
	sink := &recordingSink{fail: func(n int) error {
		if n < 3 {
			return errors.New("503 from learning api")
		}
		return nil
	}}
	d := New(sink, fastConfig(), zap.NewNop())

	d.Dispatch(event("a"))
	closeNow(t, d)

	assert.Equal(t, []string{"a"}, sink.delivered())
	assert.Equal(t, int32(3), sink.n.Load())
	assert.Equal(t, 2.0, status("retried")-retried)
}

func TestDispatch_StopsAfterMaxAttempts(t *testing.T) {
	failed := status("failed")
	sink := &recordingSink{fail: func(int) error { return errors.New("timeout") }}
	d := New(sink, fastConfig(), zap.NewNop())

	d.Dispatch(event("a"))
	closeNow(t, d)

	assert.Empty(t, sink.delivered())
	assert.Equal(t, int32(3), sink.n.Load())
	assert.Equal(t, 1.0, status("failed")-failed)
}

func TestDispatch_RejectionIsNotRetried(t *testing.T) {
	sink := &recordingSink{fail: func(int) error {
		return fmt.Errorf("status 400: %w", domain.ErrFeedbackRejected)
	}}
	d := New(sink, fastConfig(), zap.NewNop())

	d.Dispatch(event("a"))
	closeNow(t, d)

	assert.Equal(t, int32(1), sink.n.Load())
}

func TestDispatch_FullQueueDropsWithoutBlocking(t *testing.T) {
	dropped := status("dropped")
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	sink := sinkFunc(func(context.Context, outcome.Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	cfg := fastConfig()
	cfg.Workers = 1
	cfg.QueueSize = 1
	d := New(sink, cfg, zap.NewNop())

	d.Dispatch(event("in-flight"))
	<-started
	d.Dispatch(event("queued"))

	done := make(chan struct{})
	go func() {
		d.Dispatch(event("overflow"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	assert.Equal(t, 1.0, status("dropped")-dropped)
	assert.Equal(t, 1, d.QueueDepth())

	close(release)
	closeNow(t, d)
}

func TestDispatch_AfterCloseIsDropped(t *testing.T) {
	sink := &recordingSink{}
	d := New(sink, fastConfig(), zap.NewNop())
	closeNow(t, d)

	dropped := status("dropped")
	assert.NotPanics(t, func() { d.Dispatch(event("late")) })
	assert.Equal(t, 1.0, status("dropped")-dropped)
	assert.Empty(t, sink.delivered())
}

func TestClose_DeadlineCancelsInFlight(t *testing.T) {
	sink := sinkFunc(func(ctx context.Context, _ outcome.Event) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cfg := fastConfig()
	cfg.AttemptTimeout = time.Minute
	d := New(sink, cfg, zap.NewNop())
	d.Dispatch(event("stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatch_RateLimited(t *testing.T) {
	sink := &recordingSink{}
	cfg := fastConfig()
	cfg.RatePerSecond = 50
	cfg.Burst = 1
	d := New(sink, cfg, zap.NewNop())

	start := time.Now()
	for i := range 4 {
		d.Dispatch(event(fmt.Sprint(i)))
	}
	closeNow(t, d)

	assert.Len(t, sink.delivered(), 4)
	// burst of 1 then three tokens at 20ms intervals
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.applyDefaults()
	assert.Equal(t, DefaultQueueSize, c.QueueSize)
	assert.Equal(t, DefaultWorkers, c.Workers)
	assert.Equal(t, DefaultMaxAttempts, c.MaxAttempts)
	assert.Equal(t, 1, c.Burst)
}
