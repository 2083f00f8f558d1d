package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db/memory"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/repository/resultcache"
)

// --- Mocks ---

type countingFinder struct {
	calls atomic.Int32
	cands []match.Candidate
	err   error
	terms []string
}

func (f *countingFinder) FindCandidates(_ context.Context, _ string, terms []string) ([]match.Candidate, error) {
	f.calls.Add(1)
	f.terms = terms
	return f.cands, f.err
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func candidates() []match.Candidate {
	w := match.DefaultWeights()
	return []match.Candidate{
		match.NewCandidate("u3", "Carol", "", match.Score(0.4, 0.5, 0.5), w),
		match.NewCandidate("u2", "Bob", "", match.Score(0.9, 0.8, 0.7), w),
		match.NewCandidate("u4", "Dan", "", match.Score(0.4, 0.5, 0.5), w),
	}
}

func newService(t *testing.T, f *countingFinder) *Service {
	t.Helper()
	st := memory.NewStore()
	cache := resultcache.New(st, nil, zap.NewNop())
	return New(cache, f, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

// --- Tests ---

func TestDiscover_MissThenHit(t *testing.T) {
	f := &countingFinder{cands: candidates()}
	svc := newService(t, f)
	ctx := context.Background()

	first, hit, err := svc.Discover(ctx, "u1", []string{"fundraising", "cofounder"})
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first.Items, 3)
	assert.Equal(t, "u2", first.Items[0].ID)
	assert.Equal(t, []string{"u2", "u3", "u4"}, ids(first.Items), "ties break on candidate id")
	assert.Equal(t, []string{"cofounder", "fundraising"}, f.terms)

	second, hit, err := svc.Discover(ctx, "u1", []string{"cofounder", "fundraising"})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestDiscover_InvalidateForcesRecompute(t *testing.T) {
	f := &countingFinder{cands: candidates()}
	svc := newService(t, f)
	ctx := context.Background()
	terms := []string{"fundraising", "cofounder"}

	_, _, err := svc.Discover(ctx, "u1", terms)
	require.NoError(t, err)

	svc.Invalidate(ctx, discovery.AllScope())

	_, hit, err := svc.Discover(ctx, "u1", terms)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestDiscover_OwnerInvalidationLeavesOthers(t *testing.T) {
	f := &countingFinder{cands: candidates()}
	svc := newService(t, f)
	ctx := context.Background()

	for _, owner := range []string{"u1", "u5"} {
		_, _, err := svc.Discover(ctx, owner, []string{"seed"})
		require.NoError(t, err)
	}
	svc.Invalidate(ctx, discovery.OwnerScope("u1"))

	_, hit, err := svc.Discover(ctx, "u5", []string{"seed"})
	require.NoError(t, err)
	assert.True(t, hit)

	_, hit, err = svc.Discover(ctx, "u1", []string{"seed"})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDiscover_EmptyOwner(t *testing.T) {
	f := &countingFinder{}
	svc := newService(t, f)

	_, _, err := svc.Discover(context.Background(), "  ", []string{"x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.calls.Load())
}

func TestDiscover_FinderErrorNotCached(t *testing.T) {
	f := &countingFinder{err: fmt.Errorf("search: %w", domain.ErrTransientDependency)}
	svc := newService(t, f)
	ctx := context.Background()

	_, _, err := svc.Discover(ctx, "u1", []string{"x"})
	require.ErrorIs(t, err, domain.ErrTransientDependency)

	f.err = nil
	f.cands = candidates()
	_, hit, err := svc.Discover(ctx, "u1", []string{"x"})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDiscover_EmptyResultIsCached(t *testing.T) {
	f := &countingFinder{}
	svc := newService(t, f)
	ctx := context.Background()

	res, _, err := svc.Discover(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	_, hit, err := svc.Discover(ctx, "u1", nil)
	require.NoError(t, err)
	assert.True(t, hit)
}

// brokenCache always misses and drops writes.
type brokenCache struct{ sets int }

func (c *brokenCache) Get(context.Context, discovery.CacheKey, string) ([]byte, resultcache.Ticket, bool) {
	return nil, resultcache.Ticket{}, false
}
func (c *brokenCache) Set(context.Context, resultcache.Ticket, []byte, time.Duration) { c.sets++ }
func (c *brokenCache) Invalidate(context.Context, discovery.Scope)                    {}

func TestDiscover_CacheOutageStillServes(t *testing.T) {
	f := &countingFinder{cands: candidates()}
	svc := New(&brokenCache{}, f, zap.NewNop())

	for range 2 {
		res, hit, err := svc.Discover(context.Background(), "u1", []string{"x"})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Len(t, res.Items, 3)
	}
	assert.Equal(t, int32(2), f.calls.Load())
}

// corruptCache serves a payload that is not a Result.
type corruptCache struct{ brokenCache }

func (c *corruptCache) Get(context.Context, discovery.CacheKey, string) ([]byte, resultcache.Ticket, bool) {
	return []byte("{not json"), resultcache.Ticket{}, true
}

func TestDiscover_CorruptEntryRecomputes(t *testing.T) {
	f := &countingFinder{cands: candidates()}
	svc := New(&corruptCache{}, f, zap.NewNop())

	_, hit, err := svc.Discover(context.Background(), "u1", []string{"x"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestDiscover_PropagatesFinderError(t *testing.T) {
	boom := errors.New("boom")
	svc := newService(t, &countingFinder{err: boom})

	_, _, err := svc.Discover(context.Background(), "u1", []string{"x"})
	assert.ErrorIs(t, err, boom)
}

func ids(cs []match.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
