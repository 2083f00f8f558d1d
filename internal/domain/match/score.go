// Package match holds the match-score model: a three-component vector with a
// derived overall score and the ranking order used for discovery results.
package match

import (
	"fmt"
	"math"
)

// Neutral is the value used for a score component that was never captured.
const Neutral = 0.5

// Weights combines the three components into the overall score.
// The weights are configured as a unit and must sum to 1.
type Weights struct {
	Relevance   float64
	Trust       float64
	Reciprocity float64
}

// DefaultWeights returns the fixed production weights (0.5 / 0.25 / 0.25).
func DefaultWeights() Weights {
	return Weights{Relevance: 0.5, Trust: 0.25, Reciprocity: 0.25}
}

// Validate checks that every weight is non-negative and that they sum to 1.
func (w Weights) Validate() error {
	if w.Relevance < 0 || w.Trust < 0 || w.Reciprocity < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", w)
	}
	if sum := w.Relevance + w.Trust + w.Reciprocity; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %.6f", sum)
	}
	return nil
}

// Overall returns the weighted sum of v's components, clamped to [0,1].
func (w Weights) Overall(v Vector) float64 {
	return Clamp01(w.Relevance*v.Relevance + w.Trust*v.Trust + w.Reciprocity*v.Reciprocity)
}

// Vector is an immutable match score. Every component lies in [0,1].
type Vector struct {
	Relevance   float64 `json:"relevance"`
	Trust       float64 `json:"trust"`
	Reciprocity float64 `json:"reciprocity"`
}

// Score clamps the inputs to [0,1]. Upstream drift never produces an out-of-range vector.
func Score(relevance, trust, reciprocity float64) Vector {
	return Vector{
		Relevance:   Clamp01(relevance),
		Trust:       Clamp01(trust),
		Reciprocity: Clamp01(reciprocity),
	}
}

// NeutralVector returns the vector used when no score was captured.
func NeutralVector() Vector {
	return Vector{Relevance: Neutral, Trust: Neutral, Reciprocity: Neutral}
}

// Overall returns the overall score under the default weights.
func (v Vector) Overall() float64 {
	return DefaultWeights().Overall(v)
}

// Clamp01 bounds x to [0,1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}

// Clamp bounds x to [lo,hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
