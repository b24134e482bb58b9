package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/race-odds/internal/models"
)

const (
	// TotalProbability is the sum every distribution is scaled to.
	TotalProbability = 100.0
	// ShiftEpsilon keeps the lowest shifted score strictly positive.
	ShiftEpsilon = 0.01
	// SumTolerance bounds the rounding error accepted on a distribution's total.
	SumTolerance = 1e-6
)

// ErrEmptyScores is returned when asked to normalize nothing.
var ErrEmptyScores = errors.New("cannot normalize an empty score set")

// Normalize maps scores onto non-negative probabilities summing to 100, keeping
// input order. If the minimum is negative every score is shifted by |min|+ε first.
// Equal scores produce exactly 100/N each.
func Normalize(scores []float64) ([]float64, error) {
	n := len(scores)
	if n == 0 {
		return nil, ErrEmptyScores
	}

	lowest := scores[0]
	allEqual := true
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: score %d is not finite", models.ErrInvariantViolation, i)
		}
		if s != scores[0] {
			allEqual = false
		}
		if s < lowest {
			lowest = s
		}
	}

	out := make([]float64, n)
	if allEqual {
		uniform := TotalProbability / float64(n)
		for i := range out {
			out[i] = uniform
		}
		return out, nil
	}

	shift := 0.0
	if lowest < 0 {
		shift = -lowest + ShiftEpsilon
	}

	sum := 0.0
	for _, s := range scores {
		sum += s + shift
	}
	if sum <= 0 || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: shifted total %g", models.ErrInvariantViolation, sum)
	}

	for i, s := range scores {
		out[i] = (s + shift) / sum * TotalProbability
	}

	if err := CheckDistribution(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckDistribution verifies that every value is finite and non-negative and that
// the total is 100 within SumTolerance.
func CheckDistribution(dist []float64) error {
	if len(dist) == 0 {
		return fmt.Errorf("%w: empty distribution", models.ErrInvariantViolation)
	}

	total := 0.0
	for i, p := range dist {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: probability %d is %g", models.ErrInvariantViolation, i, p)
		}
		total += p
	}
	if math.Abs(total-TotalProbability) > SumTolerance {
		return fmt.Errorf("%w: total %.9f", models.ErrInvariantViolation, total)
	}
	return nil
}
