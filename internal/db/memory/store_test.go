package memory

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*Store, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewStore(WithClock(clk.Now)), clk
}

func TestGetSet(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestSetWithTTL_Expires(t *testing.T) {
	s, clk := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.SetWithTTL(ctx, "k", []byte("v"), time.Second))
	clk.Advance(999 * time.Millisecond)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	clk.Advance(time.Millisecond)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestSetNX(t *testing.T) {
	s, clk := newTestStore()
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "k", []byte("first"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "k", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := s.Get(ctx, "k")
	assert.Equal(t, "first", string(got))

	clk.Advance(time.Second)
	ok, err = s.SetNX(ctx, "k", []byte("third"), 0)
	require.NoError(t, err)
	assert.True(t, ok, "expired key counts as absent")
}

func TestSetNX_ConcurrentSingleWinner(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := s.SetNX(ctx, "k", []byte("x"), 0); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCompareAndSwap(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	ok, err := s.CompareAndSwap(ctx, "k", []byte("v1"), []byte("v2"))
	require.NoError(t, err)
	assert.False(t, ok, "missing key must not match")

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	ok, err = s.CompareAndSwap(ctx, "k", []byte("stale"), []byte("v2"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CompareAndSwap(ctx, "k", []byte("v1"), []byte("v2"))
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ := s.Get(ctx, "k")
	assert.Equal(t, "v2", string(got))
}

func TestCompareAndSwap_ConcurrentSingleWinner(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("base")))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := []byte("v" + strconv.Itoa(i))
			if ok, err := s.CompareAndSwap(ctx, "k", []byte("base"), next); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestIncr(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "gen")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	require.NoError(t, s.Set(ctx, "text", []byte("abc")))
	_, err := s.Incr(ctx, "text")
	require.Error(t, err)
}

func TestIncrBy_KeepsTTL(t *testing.T) {
	s, clk := newTestStore()
	ctx := context.Background()

	n, err := s.IncrBy(ctx, "tokens", 40)
	require.NoError(t, err)
	assert.EqualValues(t, 40, n)

	require.NoError(t, s.Expire(ctx, "tokens", time.Minute, true))
	// NX leaves the first TTL in place
	require.NoError(t, s.Expire(ctx, "tokens", time.Hour, true))

	n, err = s.IncrBy(ctx, "tokens", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)

	clk.Advance(time.Minute)
	_, err = s.Get(ctx, "tokens")
	assert.ErrorIs(t, err, db.ErrKeyNotFound)
}

func TestGetMultiAndDel(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "c", []byte("3")))

	out, err := s.GetMulti(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "1", string(out[0]))
	assert.Nil(t, out[1])
	assert.Equal(t, "3", string(out[2]))

	require.NoError(t, s.Del(ctx, "a", "c", "missing"))
	out, err = s.GetMulti(ctx, []string{"a", "c"})
	require.NoError(t, err)
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
}

func TestScan(t *testing.T) {
	s, clk := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "x:outcome:2", nil))
	require.NoError(t, s.Set(ctx, "x:outcome:1", nil))
	require.NoError(t, s.SetWithTTL(ctx, "x:outcome:3", nil, time.Second))
	require.NoError(t, s.Set(ctx, "x:other:1", nil))
	clk.Advance(time.Second)

	keys, err := s.Scan(ctx, "x:outcome:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"x:outcome:1", "x:outcome:2"}, keys)
}

func TestCancelledContext(t *testing.T) {
	s, _ := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, "k", []byte("v"))
	var dbErr *db.Error
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, db.OpSet, dbErr.Op)
	require.Error(t, s.Ping(ctx))
}

func TestHash(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	_, err := s.HGetAll(ctx, "p:1")
	require.ErrorIs(t, err, db.ErrKeyNotFound)

	require.NoError(t, s.HSet(ctx, "p:1", map[string]string{"name": "Ada"}))
	require.NoError(t, s.HSet(ctx, "p:1", map[string]string{"trust": "0.9"}))
	h, err := s.HGetAll(ctx, "p:1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Ada", "trust": "0.9"}, h)
}
