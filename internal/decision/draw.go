package decision

import (
	"errors"
	"math/rand/v2"
)

// Result is one of the three wheel outcomes.
type Result string

const (
	ResultYes   Result = "Yes"
	ResultNo    Result = "No"
	ResultMaybe Result = "Maybe"
)

// Weights are the relative chances of each outcome, expressed as
// percentages summing to 100 after normalization.
type Weights struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Maybe int `json:"maybe"`
}

var ErrInvalidWeights = errors.New("weights must be non-negative and sum to a positive total")

// Normalize scales the weights so they sum to 100, assigning any
// rounding remainder to the maybe bucket.
func (w Weights) Normalize() (Weights, error) {
	if w.Yes < 0 || w.No < 0 || w.Maybe < 0 {
		return Weights{}, ErrInvalidWeights
	}
	total := w.Yes + w.No + w.Maybe
	if total == 0 {
		return Weights{}, ErrInvalidWeights
	}

	yes := w.Yes * 100 / total
	no := w.No * 100 / total
	return Weights{Yes: yes, No: no, Maybe: 100 - yes - no}, nil
}

// Draw picks an outcome by cumulative threshold over a uniform draw in
// [0, 100). The weights must already be normalized.
func Draw(w Weights, rng *rand.Rand) Result {
	var roll float64
	if rng != nil {
		roll = rng.Float64() * 100
	} else {
		roll = rand.Float64() * 100
	}

	if roll < float64(w.Yes) {
		return ResultYes
	}
	if roll < float64(w.Yes+w.No) {
		return ResultNo
	}
	return ResultMaybe
}
