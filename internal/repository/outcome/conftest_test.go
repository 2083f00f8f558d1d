package outcome

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn      func(ctx context.Context, key string) ([]byte, error)
	getMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	setNXFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	casFn      func(ctx context.Context, key string, old, value []byte) (bool, error)
	scanFn     func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value, ttl)
	}
	return true, nil
}

func (m *mockStore) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	if m.casFn != nil {
		return m.casFn(ctx, key, old, value)
	}
	return true, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, 0, zap.NewNop()), ms
}

var recordedAt = time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

func testRecord(t *testing.T, introID string) domout.Record {
	t.Helper()
	rating := 4
	text := "good call"
	f := domout.Fields{
		Kind:         domout.KindSuccessful,
		Rating:       &rating,
		FeedbackText: &text,
		Tags:         []string{"great_fit"},
	}
	mc := match.Context{
		Score:       match.Score(0.8, 0.6, 0.4),
		Overall:     0.65,
		RequesterID: "alice",
		CandidateID: "bob",
		ScoredAt:    recordedAt.Add(-time.Hour),
	}
	rec, err := domout.New("out-"+introID, introID, "alice", f, mc, recordedAt)
	if err != nil {
		t.Fatalf("build record: %v", err)
	}
	return rec
}
