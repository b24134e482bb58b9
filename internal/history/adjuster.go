package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-odds/internal/metrics"
	"github.com/yourusername/race-odds/internal/models"
)

// Adjustment dimensions
const (
	DimensionSurface  = "surface"
	DimensionDistance = "distance"
	DimensionTravel   = "travel"
	DimensionSeasonal = "seasonal"
	DimensionVenue    = "venue"
)

// Sensitivities scale how strongly each dimension reacts to past placings. A zero
// sensitivity disables the dimension.
type Sensitivities struct {
	Surface  float64 `mapstructure:"surface" json:"surface" validate:"gte=0"`
	Distance float64 `mapstructure:"distance" json:"distance" validate:"gte=0"`
	Travel   float64 `mapstructure:"travel" json:"travel" validate:"gte=0"`
	Seasonal float64 `mapstructure:"seasonal" json:"seasonal" validate:"gte=0"`
	Venue    float64 `mapstructure:"venue" json:"venue" validate:"gte=0"`
}

// AdjusterConfig configures the History-aware adjuster.
type AdjusterConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	ReferencePosition float64       `mapstructure:"reference_position" json:"reference_position" validate:"gt=0"`
	UnplacedPosition  float64       `mapstructure:"unplaced_position" json:"unplaced_position" validate:"gt=0"`
	DistanceTolerance int           `mapstructure:"distance_tolerance" json:"distance_tolerance" validate:"gte=0"`
	MinFactor         float64       `mapstructure:"min_factor" json:"min_factor" validate:"gt=0"`
	MaxFactor         float64       `mapstructure:"max_factor" json:"max_factor" validate:"gtefield=MinFactor"`
	MinRecords        int           `mapstructure:"min_records" json:"min_records" validate:"gte=1"`
	Sensitivity       Sensitivities `mapstructure:"sensitivity" json:"sensitivity"`
}

// DefaultAdjusterConfig returns the stock adjuster settings.
func DefaultAdjusterConfig() AdjusterConfig {
	return AdjusterConfig{
		Timeout:           2 * time.Second,
		ReferencePosition: 5,
		UnplacedPosition:  10,
		DistanceTolerance: 200,
		MinFactor:         0.5,
		MaxFactor:         1.5,
		MinRecords:        1,
		Sensitivity: Sensitivities{
			Surface:  0.2,
			Distance: 0.25,
			Travel:   0.1,
			Seasonal: 0.15,
			Venue:    0.2,
		},
	}
}

// Adjustment is the composite history multiplier for one entrant.
type Adjustment struct {
	Factor     float64            `json:"factor"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
	Records    int                `json:"records"`
	// Fallback is set when the store failed and the neutral factor was used.
	Fallback bool `json:"fallback,omitempty"`
}

// Neutral returns the adjustment applied when history is unavailable.
func Neutral() Adjustment {
	return Adjustment{Factor: 1.0}
}

// Adjuster turns a horse's past starts into a multiplier for the current race.
type Adjuster struct {
	store  Store
	cfg    AdjusterConfig
	logger *logrus.Logger
}

// NewAdjuster creates an Adjuster. A nil store yields neutral adjustments.
func NewAdjuster(store Store, cfg AdjusterConfig, logger *logrus.Logger) *Adjuster {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adjuster{store: store, cfg: cfg, logger: logger}
}

// Adjust looks up the horse and computes its composite factor. Store failures and
// timeouts are logged and absorbed as a neutral factor of 1.0.
func (a *Adjuster) Adjust(ctx context.Context, name string, race models.RaceContext) Adjustment {
	if a == nil || a.store == nil {
		return Neutral()
	}

	lookupCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	records, err := a.query(lookupCtx, name)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		result := metrics.LookupError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded) {
			result = metrics.LookupTimeout
		}
		metrics.RecordHistoryLookup(result, elapsed)
		a.logger.WithFields(logrus.Fields{
			"component": "history",
			"entrant":   name,
			"result":    result,
		}).WithError(err).Warn("History lookup failed, using neutral factor")

		adj := Neutral()
		adj.Fallback = true
		return adj
	}

	if len(records) == 0 {
		metrics.RecordHistoryLookup(metrics.LookupEmpty, elapsed)
	} else {
		metrics.RecordHistoryLookup(metrics.LookupHit, elapsed)
	}

	adj := a.Compute(records, race)
	metrics.RecordHistoryFactor(adj.Factor)
	return adj
}

type lookupResult struct {
	records []models.HistoricalRecord
	err     error
}

// query bounds the store call by ctx even when the store ignores it. A store
// that outlives the deadline finishes in the background and its result is dropped.
func (a *Adjuster) query(ctx context.Context, name string) ([]models.HistoricalRecord, error) {
	done := make(chan lookupResult, 1)
	go func() {
		records, err := a.store.Query(ctx, name)
		done <- lookupResult{records: records, err: err}
	}()

	select {
	case res := <-done:
		return res.records, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("history lookup for %q: %w", name, ctx.Err())
	}
}

// Compute derives the composite factor from records without touching the store.
// Records dated on or after the race date are ignored.
func (a *Adjuster) Compute(records []models.HistoricalRecord, race models.RaceContext) Adjustment {
	past := make([]models.HistoricalRecord, 0, len(records))
	for _, r := range records {
		if !race.Date.IsZero() && !r.RaceDate.IsZero() && !r.RaceDate.Before(race.Date) {
			continue
		}
		past = append(past, r)
	}
	sort.SliceStable(past, func(i, j int) bool { return past[i].RaceDate.Before(past[j].RaceDate) })

	adj := Adjustment{Factor: 1.0, Dimensions: make(map[string]float64), Records: len(past)}
	if len(past) == 0 {
		return adj
	}

	dims := []struct {
		name        string
		sensitivity float64
		matches     []models.HistoricalRecord
	}{
		{DimensionSurface, a.cfg.Sensitivity.Surface, surfaceMatches(past, race)},
		{DimensionDistance, a.cfg.Sensitivity.Distance, distanceMatches(past, race, a.cfg.DistanceTolerance)},
		{DimensionTravel, a.cfg.Sensitivity.Travel, travelMatches(past, race)},
		{DimensionSeasonal, a.cfg.Sensitivity.Seasonal, seasonalMatches(past, race)},
		{DimensionVenue, a.cfg.Sensitivity.Venue, venueMatches(past, race)},
	}

	for _, d := range dims {
		f := a.dimensionFactor(d.matches, d.sensitivity)
		adj.Dimensions[d.name] = f
		adj.Factor *= f
	}
	return adj
}

// dimensionFactor is 1 + sensitivity × (reference − mean position) / reference,
// clamped. Too few matches give 1.0.
func (a *Adjuster) dimensionFactor(matches []models.HistoricalRecord, sensitivity float64) float64 {
	if sensitivity == 0 || len(matches) == 0 || len(matches) < a.cfg.MinRecords {
		return 1.0
	}

	sum := 0.0
	for _, r := range matches {
		if r.Placed() {
			sum += float64(r.Position)
		} else {
			sum += a.cfg.UnplacedPosition
		}
	}
	mean := sum / float64(len(matches))

	ref := a.cfg.ReferencePosition
	f := 1 + sensitivity*(ref-mean)/ref
	return math.Min(a.cfg.MaxFactor, math.Max(a.cfg.MinFactor, f))
}

// Apply multiplies a base score by a factor. Negative scores are divided instead
// so that a factor above 1 always improves the score.
func Apply(base, factor float64) float64 {
	if factor <= 0 {
		return base
	}
	if base < 0 {
		return base / factor
	}
	return base * factor
}

func surfaceMatches(records []models.HistoricalRecord, race models.RaceContext) []models.HistoricalRecord {
	if race.Surface == models.SurfaceUnknown {
		return nil
	}
	return filter(records, func(r models.HistoricalRecord) bool { return r.Surface == race.Surface })
}

func distanceMatches(records []models.HistoricalRecord, race models.RaceContext, tolerance int) []models.HistoricalRecord {
	if race.Distance <= 0 {
		return nil
	}
	return filter(records, func(r models.HistoricalRecord) bool {
		if r.Distance <= 0 {
			return false
		}
		diff := r.Distance - race.Distance
		if diff < 0 {
			diff = -diff
		}
		return diff <= tolerance
	})
}

// travelMatches applies only when the horse last ran somewhere else. It selects
// the starts at the race venue that came straight after a start at that previous
// venue.
func travelMatches(records []models.HistoricalRecord, race models.RaceContext) []models.HistoricalRecord {
	if race.Venue == "" || len(records) == 0 {
		return nil
	}
	from := records[len(records)-1].Venue
	if from == "" || models.SameVenue(from, race.Venue) {
		return nil
	}

	var out []models.HistoricalRecord
	for i := 1; i < len(records); i++ {
		if models.SameVenue(records[i-1].Venue, from) && models.SameVenue(records[i].Venue, race.Venue) {
			out = append(out, records[i])
		}
	}
	return out
}

func seasonalMatches(records []models.HistoricalRecord, race models.RaceContext) []models.HistoricalRecord {
	if race.Date.IsZero() || race.Venue == "" {
		return nil
	}
	season := race.Season()
	return filter(records, func(r models.HistoricalRecord) bool {
		return models.SameVenue(r.Venue, race.Venue) && !r.RaceDate.IsZero() && models.Season(r.RaceDate) == season
	})
}

func venueMatches(records []models.HistoricalRecord, race models.RaceContext) []models.HistoricalRecord {
	if race.Venue == "" {
		return nil
	}
	return filter(records, func(r models.HistoricalRecord) bool { return models.SameVenue(r.Venue, race.Venue) })
}

func filter(records []models.HistoricalRecord, keep func(models.HistoricalRecord) bool) []models.HistoricalRecord {
	var out []models.HistoricalRecord
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
