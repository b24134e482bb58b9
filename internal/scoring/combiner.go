package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yourusername/race-odds/internal/models"
)

// Combine returns the weighted sum of the sub-scores. Factors are summed in a
// fixed order so identical inputs always produce identical floats.
func Combine(sub SubScores, weights map[string]float64) float64 {
	total := 0.0
	for _, factor := range models.KnownFactors {
		w, ok := weights[factor]
		if !ok {
			continue
		}
		total += sub[factor] * w
	}
	return total
}

// ValidateWeights rejects unknown factor names and non-finite coefficients. The
// returned error is a *models.ValidationError.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return models.NewValidationError(models.CodeInvalidModel, "weight vector is empty")
	}

	var unknown []string
	for name, w := range weights {
		if !models.IsKnownFactor(name) {
			unknown = append(unknown, name)
			continue
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return models.NewValidationError(models.CodeInvalidModel,
				fmt.Sprintf("weight for %q is not finite", name))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return models.NewValidationError(models.CodeUnknownFactor,
			fmt.Sprintf("unknown factors: %s", strings.Join(unknown, ", ")))
	}
	return nil
}
