// Package content handles mutations that change what discovery can find.
// Every successful mutation invalidates cached discovery results.
// Posts follow the configured Policy. Profile changes always flush every
// owner, because a profile's trust and reciprocity appear in other owners' rankings.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	dompost "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/post"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/profile"
)

// Policy selects the invalidation scope for content mutations.
type Policy string

const (
	// PolicyAll flushes every owner's cached results.
	PolicyAll Policy = "all"
	// PolicyOwner only flushes the author's own cached results on a new post.
	PolicyOwner Policy = "owner"
)

// ParsePolicy validates a configured policy. Empty means PolicyAll.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAll:
		return PolicyAll, nil
	case PolicyOwner:
		return PolicyOwner, nil
	default:
		return "", fmt.Errorf("%w: unknown invalidation policy %q", domain.ErrValidation, s)
	}
}

// Service publishes posts and profiles.
type Service struct {
	posts    PostRepository
	profiles ProfileIndex
	cache    Invalidator
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a content service.
func New(posts PostRepository, profiles ProfileIndex, cache Invalidator, policy Policy, logger *zap.Logger) *Service {
	return &Service{
		posts:    posts,
		profiles: profiles,
		cache:    cache,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// PublishPost stores a post and invalidates cached discovery results.
func (s *Service) PublishPost(ctx context.Context, authorID, body string) (dompost.Post, error) {
	p, err := dompost.New(s.newID(), authorID, body, s.now())
	if err != nil {
		return dompost.Post{}, err
	}
	if err := s.posts.Save(ctx, p); err != nil {
		return dompost.Post{}, fmt.Errorf("save post: %w", err)
	}
	scope := discovery.AllScope()
	if s.policy == PolicyOwner {
		scope = discovery.OwnerScope(authorID)
	}
	s.invalidate(ctx, scope, "post")
	return p, nil
}

// GetPost returns a published post.
func (s *Service) GetPost(ctx context.Context, id string) (dompost.Post, error) {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return dompost.Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// ProfileInput is the caller-editable part of a profile.
type ProfileInput struct {
	Name        string
	Summary     string
	Trust       *float64
	Reciprocity *float64
}

// UpsertProfile stores userID's profile and invalidates every owner's cached results.
func (s *Service) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (profile.Profile, error) {
	p, err := profile.New(userID, in.Name, in.Summary, in.Trust, in.Reciprocity, s.now())
	if err != nil {
		return profile.Profile{}, err
	}
	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return profile.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	s.invalidate(ctx, discovery.AllScope(), "profile")
	return p, nil
}

// GetProfile returns a stored profile.
func (s *Service) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *Service) invalidate(ctx context.Context, scope discovery.Scope, source string) {
	s.cache.Invalidate(ctx, scope)
	s.logger.Debug("discovery cache invalidated",
		zap.String("source", source),
		zap.Stringer("scope", scope),
	)
}
