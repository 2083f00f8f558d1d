// Package analytics computes read-only rollups over outcome records.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// DefaultTopTags is the number of tags reported when no limit is configured.
const DefaultTopTags = 10

// Range is a half-open time window [From, To).
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate rejects inverted windows.
func (r Range) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: from and to are required", domain.ErrValidation)
	}
	if !r.From.Before(r.To) {
		return fmt.Errorf("%w: from must be before to", domain.ErrValidation)
	}
	return nil
}

// Contains reports whether t falls inside the window.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Filters narrow the records considered. Zero values match everything.
type Filters struct {
	Kinds      []outcome.Kind
	RecordedBy string
}

func (f Filters) match(rec *outcome.Record) bool {
	if f.RecordedBy != "" && rec.RecordedBy() != f.RecordedBy {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if rec.Kind() == k {
			return true
		}
	}
	return false
}

// TagCount is one entry of the tag frequency ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ScoreStats describes the feedback score distribution.
type ScoreStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
}

// Correlation is the Pearson correlation of each match component with success.
type Correlation struct {
	Relevance   float64 `json:"relevance"`
	Trust       float64 `json:"trust"`
	Reciprocity float64 `json:"reciprocity"`
	Overall     float64 `json:"overall"`
}

// Summary is the rollup for one window.
type Summary struct {
	Range           Range                `json:"range"`
	Total           int                  `json:"total"`
	CountsByKind    map[outcome.Kind]int `json:"counts_by_kind"`
	RatingHistogram map[int]int          `json:"rating_histogram"`
	TopTags         []TagCount           `json:"top_tags"`
	FeedbackScore   ScoreStats           `json:"feedback_score"`
	Correlation     Correlation          `json:"correlation_with_success"`
}

// Empty returns a zeroed summary with every kind and rating bucket present.
func Empty(r Range) Summary {
	s := Summary{
		Range:           r,
		CountsByKind:    make(map[outcome.Kind]int, len(outcome.Kinds)),
		RatingHistogram: make(map[int]int, 5),
		TopTags:         []TagCount{},
	}
	for _, k := range outcome.Kinds {
		s.CountsByKind[k] = 0
	}
	for i := 1; i <= 5; i++ {
		s.RatingHistogram[i] = 0
	}
	return s
}

// Compute builds the summary of records inside r that match f.
func Compute(records []outcome.Record, r Range, f Filters, topTags int) Summary {
	if topTags <= 0 {
		topTags = DefaultTopTags
	}
	s := Empty(r)

	tags := make(map[string]int)
	var scores, success, rel, trust, recip, overall []float64

	for i := range records {
		rec := &records[i]
		if !r.Contains(rec.RecordedAt()) || !f.match(rec) {
			continue
		}
		s.Total++
		s.CountsByKind[rec.Kind()]++
		if rt := rec.Rating(); rt != nil {
			s.RatingHistogram[*rt]++
		}
		for _, t := range rec.Tags() {
			tags[t]++
		}

		mc := rec.MatchContext()
		scores = append(scores, rec.FeedbackScore())
		success = append(success, successValue(rec.Kind()))
		rel = append(rel, mc.Score.Relevance)
		trust = append(trust, mc.Score.Trust)
		recip = append(recip, mc.Score.Reciprocity)
		overall = append(overall, mc.Overall)
	}

	s.TopTags = rankTags(tags, topTags)
	s.FeedbackScore = ScoreStats{Mean: Mean(scores), Median: Median(scores), StdDev: StdDev(scores)}
	s.Correlation = Correlation{
		Relevance:   Pearson(rel, success),
		Trust:       Pearson(trust, success),
		Reciprocity: Pearson(recip, success),
		Overall:     Pearson(overall, success),
	}
	return s
}

func successValue(k outcome.Kind) float64 {
	if k == outcome.KindSuccessful {
		return 1
	}
	return 0
}

func rankTags(counts map[string]int, limit int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
