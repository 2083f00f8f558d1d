// Package memory is an in-process db.Store for local runs and tests.
// String keys honour TTLs lazily on read; vector search is brute force.
package memory

import (
	"bytes"
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
)

var _ db.Store = (*Store)(nil)

type entry struct {
	value    []byte
	hash     map[string]string
	expireAt time.Time // zero means no TTL
}

func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps every key in one map behind a mutex.
type Store struct {
	mu      sync.Mutex
	data    map[string]*entry
	indexes map[string]*db.IndexDefinition
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data:    make(map[string]*entry),
		indexes: make(map[string]*db.IndexDefinition),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// lookup returns a live entry, dropping it if expired. Caller holds mu.
func (s *Store) lookup(key string) (*entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return nil, false
	}
	return e, true
}

func (s *Store) put(key string, value []byte, ttl time.Duration) {
	e := &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.data[key] = e
}

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.hash != nil {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// GetMulti returns one slot per key; absent keys yield nil.
func (s *Store) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(keys))
	for i, k := range keys {
		if e, ok := s.lookup(k); ok && e.hash == nil {
			out[i] = append([]byte(nil), e.value...)
		}
	}
	return out, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores a value that expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key, value, ttl)
	return nil
}

// SetNX writes only when key is absent.
func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &db.Error{Op: db.OpSet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.put(key, value, ttl)
	return true, nil
}

// CompareAndSwap replaces the value only while it equals old. The TTL is kept.
func (s *Store) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.hash != nil || !bytes.Equal(e.value, old) {
		return false, nil
	}
	s.data[key] = &entry{value: append([]byte(nil), value...), expireAt: e.expireAt}
	return true, nil
}

// Incr increments a decimal counter, creating it at 0.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

// IncrBy adds delta to a decimal counter, creating it at 0. The TTL is kept.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	e, ok := s.lookup(key)
	if ok {
		v, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, &db.Error{Op: db.OpIncrBy, Err: err}
		}
		n = v
	}
	n += delta
	next := &entry{value: []byte(strconv.FormatInt(n, 10))}
	if ok {
		next.expireAt = e.expireAt
	}
	s.data[key] = next
	return n, nil
}

// Expire sets a TTL on an existing key. Missing keys are ignored.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || (nx && !e.expireAt.IsZero()) {
		return nil
	}
	e.expireAt = s.now().Add(ttl)
	return nil
}

// Del removes keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Scan returns live keys matching a glob pattern, sorted.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.data {
		if _, ok := s.lookup(k); !ok {
			continue
		}
		matched, err := path.Match(pattern, k)
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		if matched {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// HSet merges fields into a hash.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.hash == nil {
		e = &entry{hash: make(map[string]string, len(fields))}
		s.data[key] = e
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	return nil
}

// HGetAll returns a copy of the hash.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.hash == nil {
		return nil, db.ErrKeyNotFound
	}
	out := make(map[string]string, len(e.hash))
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}
