package match

import "sort"

// Candidate is one scored pairing between the requesting user and another profile.
type Candidate struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Summary string  `json:"summary,omitempty"`
	Score   Vector  `json:"score"`
	Overall float64 `json:"overall"`
}

// NewCandidate scores a candidate with the given weights.
func NewCandidate(id, name, summary string, v Vector, w Weights) Candidate {
	return Candidate{ID: id, Name: name, Summary: summary, Score: v, Overall: w.Overall(v)}
}

// Rank orders candidates by overall desc, then relevance desc, then ID asc.
// The order is total, so identical inputs always rank identically.
func Rank(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Overall != b.Overall {
			return a.Overall > b.Overall
		}
		if a.Score.Relevance != b.Score.Relevance {
			return a.Score.Relevance > b.Score.Relevance
		}
		return a.ID < b.ID
	})

	return out
}
