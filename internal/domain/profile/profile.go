// Package profile defines the searchable founder profile that discovery ranks.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// Size limits for profile text, in bytes.
const (
	MaxNameSize    = 256
	MaxSummarySize = 8192
)

// Profile is what candidate search indexes. Trust and reciprocity are the
// non-semantic score components, maintained by the platform.
type Profile struct {
	id          string
	name        string
	summary     string
	trust       float64
	reciprocity float64
	updatedAt   time.Time
}

// New validates and creates a Profile. Nil trust or reciprocity take the neutral value.
func New(id, name, summary string, trust, reciprocity *float64, now time.Time) (Profile, error) {
	if strings.TrimSpace(id) == "" {
		return Profile{}, fmt.Errorf("%w: profile id is required", domain.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameSize {
		return Profile{}, fmt.Errorf("%w: name must be 1..%d bytes", domain.ErrValidation, MaxNameSize)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" || len(summary) > MaxSummarySize {
		return Profile{}, fmt.Errorf("%w: summary must be 1..%d bytes", domain.ErrValidation, MaxSummarySize)
	}

	t, err := component("trust", trust)
	if err != nil {
		return Profile{}, err
	}
	r, err := component("reciprocity", reciprocity)
	if err != nil {
		return Profile{}, err
	}

	return Profile{id: id, name: name, summary: summary, trust: t, reciprocity: r, updatedAt: now.UTC()}, nil
}

func component(name string, v *float64) (float64, error) {
	if v == nil {
		return match.Neutral, nil
	}
	if *v < 0 || *v > 1 {
		return 0, fmt.Errorf("%w: %s must be within [0,1], got %v", domain.ErrValidation, name, *v)
	}
	return *v, nil
}

// Reconstruct creates a Profile without validation (storage hydration).
func Reconstruct(id, name, summary string, trust, reciprocity float64, updatedAt time.Time) Profile {
	return Profile{id: id, name: name, summary: summary, trust: trust, reciprocity: reciprocity, updatedAt: updatedAt}
}

func (p *Profile) ID() string           { return p.id }
func (p *Profile) Name() string         { return p.name }
func (p *Profile) Summary() string      { return p.summary }
func (p *Profile) Trust() float64       { return p.trust }
func (p *Profile) Reciprocity() float64 { return p.reciprocity }
func (p *Profile) UpdatedAt() time.Time { return p.updatedAt }

// Document is the text embedded for search.
func (p *Profile) Document() string { return p.name + "\n" + p.summary }
