package resultcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db/memory"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func newTestCache(t *testing.T) (*Cache, *clock, *prometheus.CounterVec) {
	t.Helper()
	clk := &clock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	st := memory.NewStore(memory.WithClock(clk.Now))
	total := newCounter()
	return New(st, total, zap.NewNop(), WithTTL(time.Minute), WithClock(clk.Now)), clk, total
}

func key(t *testing.T, owner string, terms ...string) discovery.CacheKey {
	t.Helper()
	k, err := discovery.DeriveKey(owner, terms)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// fill runs the miss-then-set sequence a discovery request performs.
func fill(t *testing.T, c *Cache, owner string, k discovery.CacheKey, payload string) {
	t.Helper()
	_, ticket, hit := c.Get(context.Background(), k, owner)
	if hit {
		t.Fatalf("expected miss before fill")
	}
	c.Set(context.Background(), ticket, []byte(payload), 0)
}

func TestGetSet_RoundTrip(t *testing.T) {
	c, _, total := newTestCache(t)
	k := key(t, "alice", "seed", "fintech")

	fill(t, c, "alice", k, "ranked")

	got, _, hit := c.Get(context.Background(), k, "alice")
	if !hit || string(got) != "ranked" {
		t.Fatalf("Get = %q, %v", got, hit)
	}
	if v := testutil.ToFloat64(total.WithLabelValues("hit")); v != 1 {
		t.Errorf("hit count = %v, want 1", v)
	}
	if v := testutil.ToFloat64(total.WithLabelValues("miss")); v != 1 {
		t.Errorf("miss count = %v, want 1", v)
	}
}

func TestGet_TermOrderSharesEntry(t *testing.T) {
	c, _, _ := newTestCache(t)
	fill(t, c, "alice", key(t, "alice", "a", "b"), "x")

	if _, _, hit := c.Get(context.Background(), key(t, "alice", "b", "a"), "alice"); !hit {
		t.Error("reordered terms must hit the same entry")
	}
}

func TestGet_ExpiresLazily(t *testing.T) {
	c, clk, total := newTestCache(t)
	k := key(t, "alice", "a")
	fill(t, c, "alice", k, "x")

	clk.Advance(time.Minute)
	if _, _, hit := c.Get(context.Background(), k, "alice"); !hit {
		t.Error("entry at exactly ttl must still be served")
	}

	clk.Advance(time.Millisecond)
	if _, _, hit := c.Get(context.Background(), k, "alice"); hit {
		t.Error("entry past ttl must be a miss")
	}
	if v := testutil.ToFloat64(total.WithLabelValues("expired")); v != 1 {
		t.Errorf("expired count = %v, want 1", v)
	}
}

func TestInvalidate_All(t *testing.T) {
	c, _, _ := newTestCache(t)
	ka, kb := key(t, "alice", "a"), key(t, "bob", "a")
	fill(t, c, "alice", ka, "x")
	fill(t, c, "bob", kb, "y")

	c.Invalidate(context.Background(), discovery.AllScope())

	for owner, k := range map[string]discovery.CacheKey{"alice": ka, "bob": kb} {
		if _, _, hit := c.Get(context.Background(), k, owner); hit {
			t.Errorf("%s: entry survived a global invalidation", owner)
		}
	}
}

func TestInvalidate_OwnerOnly(t *testing.T) {
	c, _, _ := newTestCache(t)
	ka, kb := key(t, "alice", "a"), key(t, "bob", "a")
	fill(t, c, "alice", ka, "x")
	fill(t, c, "bob", kb, "y")

	c.Invalidate(context.Background(), discovery.OwnerScope("alice"))

	if _, _, hit := c.Get(context.Background(), ka, "alice"); hit {
		t.Error("alice's entry survived her own invalidation")
	}
	if _, _, hit := c.Get(context.Background(), kb, "bob"); !hit {
		t.Error("bob's entry must survive alice's invalidation")
	}
}

func TestSet_AfterConcurrentInvalidateIsNotServed(t *testing.T) {
	c, _, _ := newTestCache(t)
	k := key(t, "alice", "a")

	_, ticket, _ := c.Get(context.Background(), k, "alice")
	// invalidation lands while the result is being computed
	c.Invalidate(context.Background(), discovery.AllScope())
	c.Set(context.Background(), ticket, []byte("computed from old data"), 0)

	if _, _, hit := c.Get(context.Background(), k, "alice"); hit {
		t.Error("a result computed before invalidation must not be served after it")
	}

	fill(t, c, "alice", k, "fresh")
	if got, _, hit := c.Get(context.Background(), k, "alice"); !hit || string(got) != "fresh" {
		t.Errorf("Get = %q, %v after refill", got, hit)
	}
}

func TestSet_DetachedFromCancellation(t *testing.T) {
	c, _, _ := newTestCache(t)
	k := key(t, "alice", "a")

	_, ticket, _ := c.Get(context.Background(), k, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Set(ctx, ticket, []byte("x"), 0)

	if _, _, hit := c.Get(context.Background(), k, "alice"); !hit {
		t.Error("Set must complete even when the request context is cancelled")
	}
}

func TestSet_ZeroTicketIsNoop(t *testing.T) {
	c, _, total := newTestCache(t)
	c.Set(context.Background(), Ticket{}, []byte("x"), 0)
	if v := testutil.ToFloat64(total.WithLabelValues("set")); v != 0 {
		t.Errorf("set count = %v, want 0", v)
	}
}

// failingStore fails every call.
type failingStore struct{ err error }

func (f failingStore) GetMulti(context.Context, []string) ([][]byte, error) { return nil, f.err }
func (f failingStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return f.err
}
func (f failingStore) Incr(context.Context, string) (int64, error) { return 0, f.err }

func TestStoreFailuresDegrade(t *testing.T) {
	total := newCounter()
	c := New(failingStore{err: errors.New("connection refused")}, total, zap.NewNop())
	k := key(t, "alice", "a")

	payload, ticket, hit := c.Get(context.Background(), k, "alice")
	if hit || payload != nil {
		t.Errorf("Get = %q, %v; want miss", payload, hit)
	}
	c.Set(context.Background(), ticket, []byte("x"), 0)
	c.Invalidate(context.Background(), discovery.AllScope())

	if v := testutil.ToFloat64(total.WithLabelValues("error")); v != 2 {
		t.Errorf("error count = %v, want 2 (get + invalidate; set skipped)", v)
	}
}

// slowStore blocks until the context is done.
type slowStore struct{}

func (slowStore) GetMulti(ctx context.Context, _ []string) ([][]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowStore) SetWithTTL(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}
func (slowStore) Incr(ctx context.Context, _ string) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestTimeoutBoundsStoreCalls(t *testing.T) {
	c := New(slowStore{}, nil, zap.NewNop(), WithTimeout(20*time.Millisecond))

	start := time.Now()
	if _, _, hit := c.Get(context.Background(), key(t, "alice", "a"), "alice"); hit {
		t.Error("expected miss")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Get took %v; timeout not applied", elapsed)
	}
}

func TestStoreTTL(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{300 * time.Second, 301 * time.Second},
		{1500 * time.Millisecond, 3 * time.Second},
		{time.Millisecond, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := storeTTL(tt.in); got != tt.want {
			t.Errorf("storeTTL(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
