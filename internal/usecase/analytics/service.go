// Package analytics serves read-only rollups over outcome records.
package analytics

import (
	"context"
	"fmt"

	domanalytics "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/analytics"
)

// Service aggregates outcomes over a time range.
type Service struct {
	outcomes OutcomeLister
	topTags  int
}

// New creates an analytics service. topTags <= 0 uses domanalytics.DefaultTopTags.
func New(outcomes OutcomeLister, topTags int) *Service {
	if topTags <= 0 {
		topTags = domanalytics.DefaultTopTags
	}
	return &Service{outcomes: outcomes, topTags: topTags}
}

// Summarize computes the summary for records recorded inside r that match f.
// An empty window yields a zeroed summary.
func (s *Service) Summarize(
	ctx context.Context, r domanalytics.Range, f domanalytics.Filters,
) (domanalytics.Summary, error) {
	if err := r.Validate(); err != nil {
		return domanalytics.Summary{}, err
	}

	records, err := s.outcomes.List(ctx)
	if err != nil {
		return domanalytics.Summary{}, fmt.Errorf("list outcomes: %w", err)
	}
	return domanalytics.Compute(records, r, f, s.topTags), nil
}
