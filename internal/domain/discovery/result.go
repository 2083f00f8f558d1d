package discovery

import (
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// Result is a ranked discovery result. It is the payload cached per key.
type Result struct {
	OwnerID    string            `json:"owner_id"`
	Terms      []string          `json:"terms"`
	Items      []match.Candidate `json:"items"`
	ComputedAt time.Time         `json:"computed_at"`
}

// Find returns the ranked candidate with the given ID.
func (r *Result) Find(candidateID string) (match.Candidate, bool) {
	for _, c := range r.Items {
		if c.ID == candidateID {
			return c, true
		}
	}
	return match.Candidate{}, false
}
