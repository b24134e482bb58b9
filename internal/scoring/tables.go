package scoring

import (
	"fmt"
	"math"
	"sort"
)

// Designation is a form-description code and the points it is worth.
type Designation struct {
	Code   string  `mapstructure:"code" json:"code" validate:"required"`
	Weight float64 `mapstructure:"weight" json:"weight"`
}

// PriceBucket scores market prices from Min (inclusive) up to the next bucket's Min
// (exclusive). The last bucket is open ended.
type PriceBucket struct {
	Min   float64 `mapstructure:"min" json:"min" validate:"gte=0"`
	Score float64 `mapstructure:"score" json:"score"`
}

// OriginBonus is the bonus for a pedigree origin tag such as "IRE".
type OriginBonus struct {
	Tag   string  `mapstructure:"tag" json:"tag" validate:"required"`
	Bonus float64 `mapstructure:"bonus" json:"bonus"`
}

// SlotTiers describes the inside/middle/wide step function over starting slots.
type SlotTiers struct {
	InsideMax        int     `mapstructure:"inside_max" json:"inside_max" validate:"gte=0"`
	WideMargin       int     `mapstructure:"wide_margin" json:"wide_margin" validate:"gte=0"`
	DefaultFieldSize int     `mapstructure:"default_field_size" json:"default_field_size" validate:"gt=0"`
	Inside           float64 `mapstructure:"inside" json:"inside"`
	Middle           float64 `mapstructure:"middle" json:"middle"`
	Wide             float64 `mapstructure:"wide" json:"wide"`
}

// Tables holds every constant the factor scorers read. It is loaded once and
// treated as read-only.
type Tables struct {
	Designations []Designation `mapstructure:"designations" json:"designations" validate:"dive"`

	PriceBuckets  []PriceBucket `mapstructure:"price_buckets" json:"price_buckets" validate:"required,min=1,dive"`
	ReferenceTime float64       `mapstructure:"reference_time" json:"reference_time" validate:"gt=0"`
	TimeScale     float64       `mapstructure:"time_scale" json:"time_scale" validate:"gt=0"`

	GoodnessCeiling float64 `mapstructure:"goodness_ceiling" json:"goodness_ceiling" validate:"gt=0"`
	Decay           float64 `mapstructure:"decay" json:"decay" validate:"gt=0,lte=1"`

	ReferenceWeight float64 `mapstructure:"reference_weight" json:"reference_weight" validate:"gt=0"`
	WeightFactor    float64 `mapstructure:"weight_factor" json:"weight_factor"`
	WeightFloor     float64 `mapstructure:"weight_floor" json:"weight_floor"`
	WeightCeiling   float64 `mapstructure:"weight_ceiling" json:"weight_ceiling"`
	MinWeight       float64 `mapstructure:"min_weight" json:"min_weight" validate:"gt=0"`
	MaxWeight       float64 `mapstructure:"max_weight" json:"max_weight" validate:"gtfield=MinWeight"`
	PenaltyFactor   float64 `mapstructure:"penalty_factor" json:"penalty_factor"`

	Slot SlotTiers `mapstructure:"slot" json:"slot"`

	Origins []OriginBonus `mapstructure:"origins" json:"origins" validate:"dive"`

	OptimalRestDays float64 `mapstructure:"optimal_rest_days" json:"optimal_rest_days" validate:"gte=0"`
	RestScale       float64 `mapstructure:"rest_scale" json:"rest_scale" validate:"gt=0"`
	// RestFloor bounds the rest sub-score from below; the peak is 1.
	RestFloor float64 `mapstructure:"rest_floor" json:"rest_floor"`

	RatingScale  float64 `mapstructure:"rating_scale" json:"rating_scale" validate:"gt=0"`
	ClassCeiling float64 `mapstructure:"class_ceiling" json:"class_ceiling" validate:"gt=0"`
}

// DefaultTables returns the stock scoring constants.
func DefaultTables() Tables {
	return Tables{
		Designations: []Designation{
			{Code: "DB SKG SK", Weight: 10},
			{Code: "SKG SK", Weight: 8},
			{Code: "DB SK", Weight: 7},
			{Code: "SK", Weight: 6},
			{Code: "DB", Weight: 5},
			{Code: "K DB", Weight: 4},
			{Code: "K", Weight: 3},
			{Code: "KG", Weight: 2},
		},
		PriceBuckets: []PriceBucket{
			{Min: 0, Score: 10},
			{Min: 3, Score: 8},
			{Min: 6, Score: 6},
			{Min: 10, Score: 4},
			{Min: 15, Score: 2},
			{Min: 20, Score: 1},
		},
		ReferenceTime:   150,
		TimeScale:       10,
		GoodnessCeiling: 10,
		Decay:           0.8,
		ReferenceWeight: 62,
		WeightFactor:    1.0,
		WeightFloor:     -10,
		WeightCeiling:   15,
		MinWeight:       40,
		MaxWeight:       75,
		PenaltyFactor:   -2,
		Slot: SlotTiers{
			InsideMax:        4,
			WideMargin:       2,
			DefaultFieldSize: 12,
			Inside:           2,
			Middle:           1,
			Wide:             0,
		},
		Origins: []OriginBonus{
			{Tag: "USA", Bonus: 2},
			{Tag: "IRE", Bonus: 2},
			{Tag: "GB", Bonus: 1.5},
			{Tag: "GER", Bonus: 1.5},
			{Tag: "FR", Bonus: 1.5},
		},
		OptimalRestDays: 21,
		RestScale:       60,
		RestFloor:       -1,
		RatingScale:     10,
		ClassCeiling:    12,
	}
}

// Check verifies the relationships struct tags cannot express.
func (t Tables) Check() error {
	if t.WeightFloor > t.WeightCeiling {
		return fmt.Errorf("weight_floor %.2f exceeds weight_ceiling %.2f", t.WeightFloor, t.WeightCeiling)
	}
	if t.RestFloor > 1 {
		return fmt.Errorf("rest_floor %.2f exceeds the rest peak of 1", t.RestFloor)
	}

	buckets := append([]PriceBucket(nil), t.PriceBuckets...)
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Min < buckets[j].Min })
	for i := 1; i < len(buckets); i++ {
		if buckets[i].Min == buckets[i-1].Min {
			return fmt.Errorf("duplicate price bucket lower bound %.2f", buckets[i].Min)
		}
	}

	values := []float64{t.WeightFactor, t.WeightFloor, t.WeightCeiling, t.PenaltyFactor,
		t.RestFloor, t.ClassCeiling, t.Slot.Inside, t.Slot.Middle, t.Slot.Wide}
	for _, d := range t.Designations {
		values = append(values, d.Weight)
	}
	for _, b := range t.PriceBuckets {
		values = append(values, b.Score)
	}
	for _, o := range t.Origins {
		values = append(values, o.Bonus)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scoring table contains a non-finite value")
		}
	}
	return nil
}
