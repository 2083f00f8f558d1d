package match

import "time"

// Context is the match snapshot embedded into an introduction at decision time.
// Later outcome scoring references these values, not a fresh ranking.
type Context struct {
	Score       Vector    `json:"score"`
	Overall     float64   `json:"overall"`
	RequesterID string    `json:"requester_id,omitempty"`
	CandidateID string    `json:"candidate_id,omitempty"`
	ScoredAt    time.Time `json:"scored_at"`
}

// Snapshot captures a ranked candidate for the given requester.
func Snapshot(requesterID string, c Candidate, at time.Time) Context {
	return Context{
		Score:       c.Score,
		Overall:     c.Overall,
		RequesterID: requesterID,
		CandidateID: c.ID,
		ScoredAt:    at.UTC(),
	}
}

// NeutralContext is used when an introduction predates score tracking.
func NeutralContext() Context {
	v := NeutralVector()
	return Context{Score: v, Overall: v.Overall()}
}

// Anonymized returns a copy with every embedded user identifier replaced.
func (c Context) Anonymized(placeholder string) Context {
	if c.RequesterID != "" {
		c.RequesterID = placeholder
	}
	if c.CandidateID != "" {
		c.CandidateID = placeholder
	}
	return c
}

// Mentions reports whether userID appears in the snapshot.
func (c Context) Mentions(userID string) bool {
	return userID != "" && (c.RequesterID == userID || c.CandidateID == userID)
}
