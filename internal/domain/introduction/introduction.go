// Package introduction defines an introduction between two founders.
package introduction

import (
	"fmt"
	"strings"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// Introduction links a requester to a target. It carries the match snapshot that
// existed when the requester chose the target, if any.
type Introduction struct {
	id           string
	requesterID  string
	targetID     string
	matchContext *match.Context
	createdAt    time.Time
}

// New validates and creates an Introduction.
func New(id, requesterID, targetID string, mc *match.Context, now time.Time) (Introduction, error) {
	if id == "" {
		return Introduction{}, fmt.Errorf("%w: introduction id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(requesterID) == "" || strings.TrimSpace(targetID) == "" {
		return Introduction{}, fmt.Errorf("%w: requester and target are required", domain.ErrValidation)
	}
	if requesterID == targetID {
		return Introduction{}, fmt.Errorf("%w: cannot introduce a user to themselves", domain.ErrValidation)
	}
	return Introduction{
		id: id, requesterID: requesterID, targetID: targetID,
		matchContext: cloneContext(mc), createdAt: now.UTC(),
	}, nil
}

// Reconstruct creates an Introduction without validation (storage hydration).
func Reconstruct(id, requesterID, targetID string, mc *match.Context, createdAt time.Time) Introduction {
	return Introduction{id: id, requesterID: requesterID, targetID: targetID, matchContext: mc, createdAt: createdAt}
}

func (i *Introduction) ID() string           { return i.id }
func (i *Introduction) RequesterID() string  { return i.requesterID }
func (i *Introduction) TargetID() string     { return i.targetID }
func (i *Introduction) CreatedAt() time.Time { return i.createdAt }

// MatchContext returns the stored snapshot, or nil for introductions made without a ranking.
func (i *Introduction) MatchContext() *match.Context { return i.matchContext }

// IsParty reports whether userID is the requester or the target.
func (i *Introduction) IsParty(userID string) bool {
	return userID != "" && (userID == i.requesterID || userID == i.targetID)
}

// MatchContextOrNeutral returns the stored snapshot, or the neutral context when none exists.
func (i *Introduction) MatchContextOrNeutral() match.Context {
	if i.matchContext == nil {
		return match.NeutralContext()
	}
	return *i.matchContext
}

func cloneContext(mc *match.Context) *match.Context {
	if mc == nil {
		return nil
	}
	c := *mc
	return &c
}
