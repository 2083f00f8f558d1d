// Package introduction creates introductions from a discovery ranking.
package introduction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	domintro "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/introduction"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// Service creates and reads introductions.
type Service struct {
	repo      Repository
	discovery Discoverer
	now       func() time.Time
	newID     func() string
}

// New creates an introduction service.
func New(repo Repository, discovery Discoverer) *Service {
	return &Service{repo: repo, discovery: discovery, now: time.Now, newID: uuid.NewString}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create introduces requesterID to targetID. The ranking for terms is looked up
// (usually from cache); when the target is in it, its scores are frozen into the
// introduction as the match context. Otherwise the introduction carries none.
func (s *Service) Create(ctx context.Context, requesterID, targetID string, terms []string) (domintro.Introduction, error) {
	if requesterID == targetID {
		return domintro.Introduction{}, fmt.Errorf("%w: cannot introduce a user to themselves", domain.ErrValidation)
	}

	res, _, err := s.discovery.Discover(ctx, requesterID, terms)
	if err != nil {
		return domintro.Introduction{}, fmt.Errorf("discover: %w", err)
	}

	now := s.now()
	var mc *match.Context
	if c, ok := res.Find(targetID); ok {
		snap := match.Snapshot(requesterID, c, now)
		mc = &snap
	}

	in, err := domintro.New(s.newID(), requesterID, targetID, mc, now)
	if err != nil {
		return domintro.Introduction{}, err
	}
	if err := s.repo.Create(ctx, in); err != nil {
		return domintro.Introduction{}, fmt.Errorf("create introduction: %w", err)
	}
	return in, nil
}

// Get returns an introduction to one of its parties.
func (s *Service) Get(ctx context.Context, id, userID string) (domintro.Introduction, error) {
	in, err := s.repo.Get(ctx, id)
	if err != nil {
		return domintro.Introduction{}, fmt.Errorf("get introduction: %w", err)
	}
	if !in.IsParty(userID) {
		return domintro.Introduction{}, fmt.Errorf("%w: user is not a party to introduction %s", domain.ErrUnauthorized, id)
	}
	return in, nil
}
