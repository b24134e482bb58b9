package features

import "github.com/yourusername/race-odds/internal/models"

const trendThreshold = 0.5

// TrendOf compares the older and newer halves of a result sequence. Unplaced runs
// count as the worst finish.
func TrendOf(results []int) models.Trend {
	if len(results) < 2 {
		return models.TrendUnknown
	}

	half := len(results) / 2
	older := meanFinish(results[:half])
	newer := meanFinish(results[len(results)-half:])

	switch {
	case older-newer > trendThreshold:
		return models.TrendImproving
	case newer-older > trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func meanFinish(results []int) float64 {
	sum := 0
	for _, p := range results {
		if p == 0 {
			p = 10
		}
		sum += p
	}
	return float64(sum) / float64(len(results))
}
