package candidate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/db/memory"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/profile"
)

// tableEmbedder returns fixed vectors per text and counts calls.
type tableEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (e *tableEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	v, ok := e.vectors[text]
	if !ok {
		return domain.EmbeddingResult{}, errors.New("no vector for " + text)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func ptr(v float64) *float64 { return &v }

type fixture struct {
	repo  *Repo
	store *memory.Store
	emb   *tableEmbedder
}

func newFixture(t *testing.T, limit int) fixture {
	t.Helper()
	emb := &tableEmbedder{vectors: map[string][]float32{
		"Alice\nfintech founder":   {1, 0, 0},
		"Bob\nfintech investor":    {0.9, 0.1, 0},
		"Carol\nbiotech scientist": {0, 1, 0},
		"Dan\nclimate operator":    {0, 0, 1},
		"fintech":                  {1, 0, 0},
	}}
	st := memory.NewStore()
	repo := New(st, emb, emb, Config{Dimensions: 3, Limit: limit}, zap.NewNop())
	require.NoError(t, repo.EnsureIndex(context.Background()))

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range []struct {
		id, name, summary string
		trust, recip      *float64
	}{
		{"alice", "Alice", "fintech founder", ptr(0.9), ptr(0.9)},
		{"bob", "Bob", "fintech investor", ptr(0.6), ptr(0.4)},
		{"carol", "Carol", "biotech scientist", nil, nil},
		{"dan", "Dan", "climate operator", ptr(1), ptr(1)},
	} {
		prof, err := profile.New(p.id, p.name, p.summary, p.trust, p.recip, now)
		require.NoError(t, err)
		require.NoError(t, repo.UpsertProfile(context.Background(), prof))
	}
	emb.calls = 0
	return fixture{repo: repo, store: st, emb: emb}
}

func TestFindCandidates_ExcludesOwnerAndScores(t *testing.T) {
	fx := newFixture(t, 10)

	got, err := fx.repo.FindCandidates(context.Background(), "alice", []string{"fintech"})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, c := range got {
		ids = append(ids, c.ID)
		assert.NotEqual(t, "alice", c.ID)
		assert.InDelta(t, match.DefaultWeights().Overall(c.Score), c.Overall, 1e-9)
	}
	assert.ElementsMatch(t, []string{"bob", "carol", "dan"}, ids)

	bob := got[0]
	require.Equal(t, "bob", bob.ID, "nearest neighbour first")
	assert.Equal(t, "Bob", bob.Name)
	assert.Greater(t, bob.Score.Relevance, 0.9)
	assert.InDelta(t, 0.6, bob.Score.Trust, 1e-9)
	assert.InDelta(t, 0.4, bob.Score.Reciprocity, 1e-9)
}

func TestFindCandidates_NeutralComponents(t *testing.T) {
	fx := newFixture(t, 10)

	got, err := fx.repo.FindCandidates(context.Background(), "alice", []string{"fintech"})
	require.NoError(t, err)
	for _, c := range got {
		if c.ID == "carol" {
			assert.Equal(t, match.Neutral, c.Score.Trust)
			assert.Equal(t, match.Neutral, c.Score.Reciprocity)
			assert.Zero(t, c.Score.Relevance, "orthogonal vector")
			return
		}
	}
	t.Fatal("carol missing from results")
}

func TestFindCandidates_RespectsLimitAfterExcludingOwner(t *testing.T) {
	fx := newFixture(t, 2)

	got, err := fx.repo.FindCandidates(context.Background(), "alice", []string{"fintech"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindCandidates_NoTermsUsesOwnerProfile(t *testing.T) {
	fx := newFixture(t, 10)

	got, err := fx.repo.FindCandidates(context.Background(), "carol", nil)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Zero(t, fx.emb.calls, "owner vector is reused, not re-embedded")

	none, err := fx.repo.FindCandidates(context.Background(), "stranger", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindCandidates_EmbedderError(t *testing.T) {
	fx := newFixture(t, 10)
	fx.emb.err = domain.ErrEmbeddingQuotaExceeded

	_, err := fx.repo.FindCandidates(context.Background(), "alice", []string{"fintech"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingQuotaExceeded)
}

type searchFailStore struct{ *memory.Store }

func (searchFailStore) SearchKNN(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
	return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection reset")}
}

func TestFindCandidates_SearchErrorIsTransient(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{"x": {1, 0, 0}}}
	repo := New(searchFailStore{memory.NewStore()}, emb, emb, Config{Dimensions: 3}, zap.NewNop())

	_, err := repo.FindCandidates(context.Background(), "alice", []string{"x"})
	assert.ErrorIs(t, err, domain.ErrTransientDependency)
}

func TestEnsureIndex_Idempotent(t *testing.T) {
	fx := newFixture(t, 10)
	require.NoError(t, fx.repo.EnsureIndex(context.Background()))

	ok, err := fx.store.IndexExists(context.Background(), IndexName)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIndexDefinition(t *testing.T) {
	repo := New(memory.NewStore(), nil, nil, Config{Dimensions: 1536, HNSWM: 16}, zap.NewNop())
	def, err := repo.IndexDefinition()
	require.NoError(t, err)

	vf, ok := def.VectorField()
	require.True(t, ok)
	assert.Equal(t, db.VectorHNSW, vf.VectorAlgo)
	assert.Equal(t, 1536, vf.VectorDim)
	assert.True(t, def.Matches("matchloop:profile:u1"))
}

func TestUpsertProfile_RejectsWrongDimensions(t *testing.T) {
	emb := &tableEmbedder{vectors: map[string][]float32{"Eve\nsolo": {1, 0}}}
	repo := New(memory.NewStore(), emb, emb, Config{Dimensions: 3}, zap.NewNop())
	p, err := profile.New("eve", "Eve", "solo", nil, nil, time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, repo.UpsertProfile(context.Background(), p), domain.ErrEmbeddingProviderError)
}

func TestGetProfile(t *testing.T) {
	fx := newFixture(t, 10)

	p, err := fx.repo.GetProfile(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.Name())
	assert.InDelta(t, 0.6, p.Trust(), 1e-9)

	_, err = fx.repo.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
