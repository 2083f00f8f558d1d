package introduction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	domintro "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/introduction"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// --- Mocks ---

type mockRepo struct {
	created []domintro.Introduction
	byID    map[string]domintro.Introduction
	err     error
}

func (m *mockRepo) Create(_ context.Context, in domintro.Introduction) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, in)
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domintro.Introduction, error) {
	in, ok := m.byID[id]
	if !ok {
		return domintro.Introduction{}, domain.ErrNotFound
	}
	return in, nil
}

type mockDiscoverer struct {
	result discovery.Result
	err    error
	terms  []string
}

func (m *mockDiscoverer) Discover(_ context.Context, _ string, terms []string) (discovery.Result, bool, error) {
	m.terms = terms
	return m.result, true, m.err
}

var now = time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

func newService(repo *mockRepo, d *mockDiscoverer) *Service {
	s := New(repo, d).WithClock(func() time.Time { return now })
	s.newID = func() string { return "intro-1" }
	return s
}

func ranking() discovery.Result {
	w := match.DefaultWeights()
	return discovery.Result{OwnerID: "u1", Items: []match.Candidate{
		match.NewCandidate("u2", "Bob", "", match.Score(0.9, 0.6, 0.4), w),
		match.NewCandidate("u3", "Carol", "", match.Score(0.5, 0.5, 0.5), w),
	}}
}

// --- Tests ---

func TestCreate_SnapshotsRankedTarget(t *testing.T) {
	repo := &mockRepo{}
	d := &mockDiscoverer{result: ranking()}
	svc := newService(repo, d)

	in, err := svc.Create(context.Background(), "u1", "u2", []string{"seed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mc := in.MatchContext()
	if mc == nil {
		t.Fatal("expected a match context")
	}
	if mc.CandidateID != "u2" || mc.RequesterID != "u1" {
		t.Errorf("unexpected ids: %+v", mc)
	}
	if mc.Score != match.Score(0.9, 0.6, 0.4) || !mc.ScoredAt.Equal(now) {
		t.Errorf("unexpected snapshot: %+v", mc)
	}
	if len(repo.created) != 1 || repo.created[0].ID() != "intro-1" {
		t.Errorf("expected one stored introduction, got %d", len(repo.created))
	}
	if len(d.terms) != 1 || d.terms[0] != "seed" {
		t.Errorf("terms not forwarded: %v", d.terms)
	}
}

func TestCreate_TargetOutsideRanking(t *testing.T) {
	svc := newService(&mockRepo{}, &mockDiscoverer{result: ranking()})

	in, err := svc.Create(context.Background(), "u1", "u9", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.MatchContext() != nil {
		t.Errorf("expected no context, got %+v", in.MatchContext())
	}
	if got := in.MatchContextOrNeutral(); got.Overall != 0.5 {
		t.Errorf("expected neutral fallback, got %+v", got)
	}
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		target    string
		repoErr   error
		discErr   error
		want      error
	}{
		{"self introduction", "u1", "u1", nil, nil, domain.ErrValidation},
		{"missing target", "u1", "", nil, nil, domain.ErrValidation},
		{"discovery unavailable", "u1", "u2", nil, domain.ErrTransientDependency, domain.ErrTransientDependency},
		{"store conflict", "u1", "u2", domain.ErrConflict, nil, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(&mockRepo{err: tt.repoErr}, &mockDiscoverer{result: ranking(), err: tt.discErr})
			_, err := svc.Create(context.Background(), tt.requester, tt.target, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGet_PartyCheck(t *testing.T) {
	in, err := domintro.New("i1", "u1", "u2", nil, now)
	if err != nil {
		t.Fatal(err)
	}
	svc := newService(&mockRepo{byID: map[string]domintro.Introduction{"i1": in}}, &mockDiscoverer{})

	if _, err := svc.Get(context.Background(), "i1", "u2"); err != nil {
		t.Errorf("party read failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), "i1", "u3"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "nope", "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
