package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/metrics"
)

// Service answers discovery requests from the result cache, falling back to candidate search.
type Service struct {
	cache  ResultCache
	finder CandidateFinder
	logger *zap.Logger
	now    func() time.Time
}

// New creates a discovery service.
func New(cache ResultCache, finder CandidateFinder, logger *zap.Logger) *Service {
	return &Service{cache: cache, finder: finder, logger: logger, now: time.Now}
}

// WithClock overrides the time source used for ComputedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Discover returns the ranked candidates for ownerID and terms. cacheHit reports whether
// the result came from the cache; a hit returns exactly the payload stored on the miss.
func (s *Service) Discover(ctx context.Context, ownerID string, terms []string) (discovery.Result, bool, error) {
	start := time.Now()

	key, err := discovery.DeriveKey(ownerID, terms)
	if err != nil {
		return discovery.Result{}, false, err
	}

	payload, ticket, hit := s.cache.Get(ctx, key, ownerID)
	if hit {
		var res discovery.Result
		if err := json.Unmarshal(payload, &res); err == nil {
			metrics.DiscoveryDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			return res, true, nil
		}
		s.logger.Warn("discarding undecodable cached result", zap.String("key", string(key)))
	}

	normalized := discovery.NormalizeTerms(terms)
	cands, err := s.finder.FindCandidates(ctx, ownerID, normalized)
	if err != nil {
		return discovery.Result{}, false, fmt.Errorf("find candidates: %w", err)
	}

	res := discovery.Result{
		OwnerID:    ownerID,
		Terms:      normalized,
		Items:      match.Rank(cands),
		ComputedAt: s.now().UTC(),
	}
	if out, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, ticket, out, 0)
	} else {
		s.logger.Warn("encode discovery result", zap.Error(err))
	}

	metrics.DiscoveryDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return res, false, nil
}

// Invalidate drops cached results in scope.
func (s *Service) Invalidate(ctx context.Context, scope discovery.Scope) {
	s.cache.Invalidate(ctx, scope)
}
