// Package resultcache memoizes ranked discovery results in the key-value store.
//
// Invalidation never deletes entries. Each entry is stamped with the global and
// per-owner generation counters observed before the result was computed;
// Invalidate bumps a counter, and Get treats any entry with an older stamp as a miss.
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
)

// DefaultTTL is used when neither the cache nor the caller sets one.
const DefaultTTL = 300 * time.Second

// DefaultTimeout bounds every store call.
const DefaultTimeout = 200 * time.Millisecond

var (
	entryPrefix    = domain.KeyPrefix + "discovery:entry:"
	globalGenKey   = domain.KeyPrefix + "discovery:gen:all"
	ownerGenPrefix = domain.KeyPrefix + "discovery:gen:owner:"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// entry is the single stored value. It is written whole and never mutated.
type entry struct {
	OwnerID    string    `json:"owner_id"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
	TTLSeconds float64   `json:"ttl_seconds"`
	GlobalGen  int64     `json:"global_gen"`
	OwnerGen   int64     `json:"owner_gen"`
}

// Ticket carries the generations observed by Get so Set can stamp them.
// A zero Ticket makes Set a no-op.
type Ticket struct {
	key       discovery.CacheKey
	ownerID   string
	globalGen int64
	ownerGen  int64
	valid     bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the default entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithTimeout sets the per-call store deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock overrides the time source used for lazy expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is a TTL cache whose failures never reach the caller.
type Cache struct {
	store   store
	total   *prometheus.CounterVec
	logger  *zap.Logger
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

// New creates a result cache.
// total is a counter vec with label "result", passed explicitly; nil disables counting.
func New(s store, total *prometheus.CounterVec, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:   s,
		total:   total,
		logger:  logger,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the default entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the payload for key if a live, current entry exists for ownerID.
// On a miss the returned Ticket is what Set needs; it is invalid when the
// generations could not be read, which turns the following Set into a no-op.
func (c *Cache) Get(ctx context.Context, key discovery.CacheKey, ownerID string) ([]byte, Ticket, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vals, err := c.store.GetMulti(ctx, []string{entryKey(key), globalGenKey, ownerGenKey(ownerID)})
	if err != nil {
		c.fail("get", key, err)
		return nil, Ticket{}, false
	}

	t := Ticket{key: key, ownerID: ownerID}
	if t.globalGen, err = parseGen(vals[1]); err != nil {
		c.fail("get", key, err)
		return nil, Ticket{}, false
	}
	if t.ownerGen, err = parseGen(vals[2]); err != nil {
		c.fail("get", key, err)
		return nil, Ticket{}, false
	}
	t.valid = true

	if vals[0] == nil {
		c.inc("miss")
		return nil, t, false
	}

	var e entry
	if err := json.Unmarshal(vals[0], &e); err != nil {
		c.fail("decode", key, err)
		return nil, t, false
	}

	switch {
	case e.OwnerID != ownerID:
		c.inc("miss")
		return nil, t, false
	case c.now().Sub(e.CreatedAt) > time.Duration(e.TTLSeconds*float64(time.Second)):
		c.inc("expired")
		return nil, t, false
	case e.GlobalGen < t.globalGen || e.OwnerGen < t.ownerGen:
		c.inc("stale")
		return nil, t, false
	}

	c.inc("hit")
	return e.Payload, t, true
}

// Set stores payload under the ticket's key, stamped with the ticket's generations.
// It runs detached from ctx cancellation, bounded by the cache timeout, so a
// cancelled request either completes the write or leaves no trace.
func (c *Cache) Set(ctx context.Context, t Ticket, payload []byte, ttl time.Duration) {
	if !t.valid {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(entry{
		OwnerID:    t.ownerID,
		Payload:    payload,
		CreatedAt:  c.now().UTC(),
		TTLSeconds: ttl.Seconds(),
		GlobalGen:  t.globalGen,
		OwnerGen:   t.ownerGen,
	})
	if err != nil {
		c.fail("encode", t.key, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.store.SetWithTTL(ctx, entryKey(t.key), data, storeTTL(ttl)); err != nil {
		c.fail("set", t.key, err)
		return
	}
	c.inc("set")
}

// Invalidate makes every entry in scope unreachable. Errors are logged, not returned.
func (c *Cache) Invalidate(ctx context.Context, scope discovery.Scope) {
	key := globalGenKey
	if !scope.IsAll() {
		key = ownerGenKey(scope.OwnerID())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gen, err := c.store.Incr(ctx, key)
	if err != nil {
		c.inc("error")
		c.logger.Warn("Failed to invalidate discovery cache",
			zap.Stringer("scope", scope), zap.Error(err))
		return
	}
	c.inc("invalidate")
	c.logger.Debug("Discovery cache invalidated", zap.Stringer("scope", scope), zap.Int64("generation", gen))
}

func (c *Cache) fail(op string, key discovery.CacheKey, err error) {
	c.inc("error")
	c.logger.Warn("Discovery cache "+op+" failed", zap.String("key", string(key)), zap.Error(err))
}

func (c *Cache) inc(result string) {
	if c.total != nil {
		c.total.WithLabelValues(result).Inc()
	}
}

func entryKey(k discovery.CacheKey) string { return entryPrefix + string(k) }

func ownerGenKey(ownerID string) string { return ownerGenPrefix + ownerID }

func parseGen(b []byte) (int64, error) {
	if b == nil {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", b, err)
	}
	return n, nil
}

// storeTTL is the backing-store expiry: ttl rounded up to whole seconds plus one,
// so it always trails the lazy check in Get. It only reclaims memory.
func storeTTL(ttl time.Duration) time.Duration {
	s := (ttl + time.Second - 1) / time.Second
	return (s + 1) * time.Second
}
