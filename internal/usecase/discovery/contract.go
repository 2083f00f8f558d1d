package discovery

import (
	"context"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/repository/resultcache"
)

// ResultCache memoizes ranked results per key. Failures degrade to a miss inside the cache.
type ResultCache interface {
	Get(ctx context.Context, key discovery.CacheKey, ownerID string) ([]byte, resultcache.Ticket, bool)
	Set(ctx context.Context, t resultcache.Ticket, payload []byte, ttl time.Duration)
	Invalidate(ctx context.Context, scope discovery.Scope)
}

// CandidateFinder runs the semantic search behind a cache miss.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, ownerID string, terms []string) ([]match.Candidate, error)
}
