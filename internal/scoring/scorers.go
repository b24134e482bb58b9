package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/yourusername/race-odds/internal/features"
	"github.com/yourusername/race-odds/internal/models"
)

// SubScores maps factor names to sub-scores for one entrant.
type SubScores map[string]float64

// Scorer evaluates every factor for an entrant. All methods are total: missing or
// unusable inputs produce the factor's neutral value.
type Scorer struct {
	tables Tables
}

// NewScorer creates a scorer over a private copy of the tables.
func NewScorer(tables Tables) *Scorer {
	t := tables
	t.Designations = append([]Designation(nil), tables.Designations...)
	t.Origins = append([]OriginBonus(nil), tables.Origins...)
	t.PriceBuckets = append([]PriceBucket(nil), tables.PriceBuckets...)
	sort.SliceStable(t.PriceBuckets, func(i, j int) bool {
		return t.PriceBuckets[i].Min < t.PriceBuckets[j].Min
	})
	for i := range t.Designations {
		t.Designations[i].Code = strings.ToUpper(t.Designations[i].Code)
	}
	for i := range t.Origins {
		t.Origins[i].Tag = strings.ToUpper(t.Origins[i].Tag)
	}
	return &Scorer{tables: t}
}

// Tables returns the scorer's tables.
func (s *Scorer) Tables() Tables {
	return s.tables
}

// Score computes every known factor for one entrant.
func (s *Scorer) Score(f features.Features, race models.RaceContext) SubScores {
	return SubScores{
		models.FactorForm:     s.Form(f.Form),
		models.FactorRecent:   s.Recent(f.RecentResults),
		models.FactorMarket:   s.Market(f.MarketKind, f.MarketValue),
		models.FactorWeight:   s.Weight(f.Weight, f.WeightKnown),
		models.FactorPenalty:  s.Penalty(f.PenaltyTenths),
		models.FactorSlot:     s.Slot(f.Slot, race.FieldSize),
		models.FactorPedigree: s.Pedigree(f.Origin),
		models.FactorRest:     s.Rest(f.RestDays, f.RestKnown),
		models.FactorClass:    s.Class(f.Rating, f.RatingKnown),
	}
}

// Form sums the points of every designation contained in the form text.
func (s *Scorer) Form(form string) float64 {
	form = strings.ToUpper(form)
	if form == "" {
		return 0
	}
	total := 0.0
	for _, d := range s.tables.Designations {
		if strings.Contains(form, d.Code) {
			total += d.Weight
		}
	}
	return total
}

// Recent is the decay-weighted mean goodness of the result sequence, where the
// last result is the most recent and weighs 1.
func (s *Scorer) Recent(results []int) float64 {
	if len(results) == 0 {
		return 0
	}

	var weighted, totalWeight float64
	w := 1.0
	for i := len(results) - 1; i >= 0; i-- {
		weighted += s.goodness(results[i]) * w
		totalWeight += w
		w *= s.tables.Decay
	}
	return weighted / totalWeight
}

func (s *Scorer) goodness(position int) float64 {
	if position <= 0 {
		return 0
	}
	return math.Max(0, s.tables.GoodnessCeiling-float64(position))
}

// Market scores a price by bucket or an elapsed time against the reference time.
func (s *Scorer) Market(kind features.MarketKind, value float64) float64 {
	switch kind {
	case features.MarketPrice:
		score := 0.0
		for _, b := range s.tables.PriceBuckets {
			if value < b.Min {
				break
			}
			score = b.Score
		}
		return score
	case features.MarketTime:
		return math.Max(0, (s.tables.ReferenceTime-value)/s.tables.TimeScale)
	default:
		return 0
	}
}

// Weight rewards burdens below the reference weight, clamped to the configured
// floor and ceiling. Weights outside [min_weight, max_weight] are treated as
// bad data and score 0, so the score steps back to neutral just past either
// bound rather than staying at the floor or ceiling.
func (s *Scorer) Weight(weight float64, known bool) float64 {
	if !known || weight < s.tables.MinWeight || weight > s.tables.MaxWeight {
		return 0
	}
	score := (s.tables.ReferenceWeight - weight) * s.tables.WeightFactor
	return Clamp(score, s.tables.WeightFloor, s.tables.WeightCeiling)
}

// Penalty scores the additive burden, in tenths of a kilogram.
func (s *Scorer) Penalty(tenths float64) float64 {
	if tenths <= 0 {
		return 0
	}
	return s.tables.PenaltyFactor * tenths
}

// Slot is a three-tier step over the starting slot. Slot 0 counts as inside.
func (s *Scorer) Slot(slot, fieldSize int) float64 {
	tiers := s.tables.Slot
	if fieldSize <= 0 {
		fieldSize = tiers.DefaultFieldSize
	}
	switch {
	case slot <= tiers.InsideMax:
		return tiers.Inside
	case slot >= fieldSize-tiers.WideMargin:
		return tiers.Wide
	default:
		return tiers.Middle
	}
}

// Pedigree accumulates the bonus of every origin tag found in the text.
func (s *Scorer) Pedigree(origin string) float64 {
	origin = strings.ToUpper(origin)
	if origin == "" {
		return 0
	}
	total := 0.0
	for _, o := range s.tables.Origins {
		if strings.Contains(origin, o.Tag) {
			total += o.Bonus
		}
	}
	return total
}

// Rest peaks at 1 on the optimal number of days between starts and falls
// linearly to the configured floor.
func (s *Scorer) Rest(days int, known bool) float64 {
	if !known {
		return 0
	}
	score := 1 - math.Abs(float64(days)-s.tables.OptimalRestDays)/s.tables.RestScale
	return Clamp(score, s.tables.RestFloor, 1)
}

// Class scales the class rating into [0, class_ceiling].
func (s *Scorer) Class(rating int, known bool) float64 {
	if !known {
		return 0
	}
	return Clamp(float64(rating)/s.tables.RatingScale, 0, s.tables.ClassCeiling)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
