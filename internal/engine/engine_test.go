package engine

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/models"
	"github.com/yourusername/race-odds/internal/scoring"
)

// fakeAdjuster returns fixed adjustments by entrant name.
type fakeAdjuster struct {
	mu      sync.Mutex
	factors map[string]history.Adjustment
	calls   int
}

func (f *fakeAdjuster) Adjust(_ context.Context, name string, _ models.RaceContext) history.Adjustment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if adj, ok := f.factors[name]; ok {
		return adj
	}
	return history.Neutral()
}

// MockAdjuster is a testify mock of HistoryAdjuster
type MockAdjuster struct {
	mock.Mock
}

func (m *MockAdjuster) Adjust(ctx context.Context, name string, race models.RaceContext) history.Adjustment {
	args := m.Called(ctx, name, race)
	return args.Get(0).(history.Adjustment)
}

func newTestEngine(t *testing.T, cfg Config, adjuster HistoryAdjuster) *Engine {
	t.Helper()
	e, err := New(cfg, scoring.NewScorer(scoring.DefaultTables()), adjuster, nil)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC) }
	return e
}

func singleModel(weights map[string]float64) Config {
	cfg := DefaultConfig()
	cfg.Models = []models.ModelConfig{{Name: "only", Weights: weights, MixingWeight: 1}}
	return cfg
}

func raceCard() []models.EntrantRecord {
	return []models.EntrantRecord{
		{Name: "Karayel", Form: "DB SK", RecentResults: "4 3 1", Weight: "56", Market: "2.40", Slot: "2", Origin: "(IRE)", RestDays: "21", Rating: "80"},
		{Name: "Poyraz", Form: "K", RecentResults: "6 5 4", Weight: "58+5", Market: "7.5", Slot: "6", Origin: "(TUR)", RestDays: "45", Rating: "70"},
		{Name: "Lodos", RecentResults: "9 8 0", Weight: "61", Market: "22", Slot: "11", RestDays: "90"},
	}
}

func validationCode(t *testing.T, err error) string {
	t.Helper()
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Code
}

func TestPredictDefaultModels(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)

	dist, err := e.Predict(context.Background(), models.PredictRequest{
		Entrants: raceCard(),
		Race:     models.RaceContext{RaceID: "r1", Venue: "Istanbul", Surface: "Çim", Distance: 1600, FieldSize: 12},
	})
	require.NoError(t, err)

	require.Len(t, dist.Entries, 3)
	assert.InDelta(t, 100, dist.Total(), SumTolerance)
	assert.Equal(t, "Karayel", dist.Top().Name)
	assert.Equal(t, models.SurfaceTurf, dist.Race.Surface)
	assert.False(t, dist.Race.Date.IsZero())
	assert.NotEqual(t, "", dist.PredictionID.String())
	require.Len(t, dist.Models, 2)

	for i, entry := range dist.Entries {
		assert.Equal(t, i+1, entry.Rank)
		assert.GreaterOrEqual(t, entry.Probability, 0.0)
		require.Len(t, entry.Scores, 2)
		assert.Contains(t, entry.PerModel, "weighted")
		assert.Contains(t, entry.PerModel, "bayesian")
		if i > 0 {
			assert.GreaterOrEqual(t, dist.Entries[i-1].Probability, entry.Probability)
		}
	}
	assert.Equal(t, models.TrendImproving, dist.Top().Trend)
}

func TestPredictBlendIsMixtureOfModels(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)

	dist, err := e.Predict(context.Background(), models.PredictRequest{Entrants: raceCard()})
	require.NoError(t, err)

	for _, entry := range dist.Entries {
		want := 0.6*entry.PerModel["weighted"] + 0.4*entry.PerModel["bayesian"]
		assert.InDelta(t, want, entry.Probability, 1e-9)
	}
}

func TestPredictEqualScoresUniform(t *testing.T) {
	e := newTestEngine(t, singleModel(map[string]float64{models.FactorForm: 1}), nil)

	dist, err := e.Predict(context.Background(), models.PredictRequest{
		Entrants: []models.EntrantRecord{{Name: "A"}, {Name: "B"}, {Name: "C"}},
	})
	require.NoError(t, err)

	for _, entry := range dist.Entries {
		assert.Equal(t, 100.0/3, entry.Probability)
	}
}

func TestPredictTiesKeepInputOrder(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)

	dist, err := e.Predict(context.Background(), models.PredictRequest{
		Entrants: []models.EntrantRecord{{Name: "Zeta"}, {Name: "Alpha"}, {Name: "Mid"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Zeta", dist.Entries[0].Name)
	assert.Equal(t, "Alpha", dist.Entries[1].Name)
	assert.Equal(t, "Mid", dist.Entries[2].Name)
}

func TestPredictMixingOneZeroReproducesFirstModel(t *testing.T) {
	weighted := DefaultModels()[0]
	bayesian := DefaultModels()[1]
	weighted.MixingWeight = 1.0
	bayesian.MixingWeight = 0.0

	e := newTestEngine(t, DefaultConfig(), nil)
	ctx := context.Background()

	blended, err := e.Predict(ctx, models.PredictRequest{
		Entrants: raceCard(),
		Models:   []models.ModelConfig{weighted, bayesian},
	})
	require.NoError(t, err)

	alone, err := e.Predict(ctx, models.PredictRequest{
		Entrants: raceCard(),
		Models:   []models.ModelConfig{weighted},
	})
	require.NoError(t, err)

	require.Len(t, blended.Entries, len(alone.Entries))
	for i := range blended.Entries {
		assert.Equal(t, alone.Entries[i].Name, blended.Entries[i].Name)
		assert.Equal(t, alone.Entries[i].Probability, blended.Entries[i].Probability)
		assert.Equal(t, blended.Entries[i].PerModel["weighted"], blended.Entries[i].Probability)
	}
}

func TestPredictDegradedEntrantStillScores(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)

	dist, err := e.Predict(context.Background(), models.PredictRequest{
		Entrants: []models.EntrantRecord{
			{Name: "Broken", RecentResults: "", Weight: "heavy", Market: "n/a", Slot: "?"},
			{Name: "Fine", RecentResults: "1 1", Weight: "55", Market: "3.1"},
		},
	})
	require.NoError(t, err)

	for _, entry := range dist.Entries {
		if entry.Name != "Broken" {
			continue
		}
		for _, rec := range entry.Scores {
			assert.False(t, math.IsNaN(rec.BaseScore) || math.IsInf(rec.BaseScore, 0))
			assert.GreaterOrEqual(t, rec.BaseScore, 0.0)
		}
		assert.Greater(t, entry.Probability, 0.0)
	}
}

func TestPredictHistoryAdjustsOnlyHistoryModels(t *testing.T) {
	adjuster := &fakeAdjuster{factors: map[string]history.Adjustment{
		"Lodos": {Factor: 1.5, Records: 4},
	}}
	e := newTestEngine(t, DefaultConfig(), adjuster)

	dist, err := e.Predict(context.Background(), models.PredictRequest{Entrants: raceCard()})
	require.NoError(t, err)
	assert.Equal(t, 3, adjuster.calls)

	plain := newTestEngine(t, DefaultConfig(), nil)
	baseline, err := plain.Predict(context.Background(), models.PredictRequest{Entrants: raceCard()})
	require.NoError(t, err)

	find := func(d *models.RankedDistribution, name string) models.RankedEntry {
		for _, e := range d.Entries {
			if e.Name == name {
				return e
			}
		}
		t.Fatalf("entrant %s missing", name)
		return models.RankedEntry{}
	}

	adjusted := find(dist, "Lodos")
	unadjusted := find(baseline, "Lodos")
	assert.Greater(t, adjusted.PerModel["weighted"], unadjusted.PerModel["weighted"])
	assert.InDelta(t, unadjusted.PerModel["bayesian"], adjusted.PerModel["bayesian"], 1e-9)

	for _, rec := range adjusted.Scores {
		switch rec.Model {
		case "weighted":
			require.NotNil(t, rec.AdjustedScore)
			assert.Equal(t, 1.5, rec.HistoryFactor)
		case "bayesian":
			assert.Nil(t, rec.AdjustedScore)
			assert.Equal(t, 1.0, rec.HistoryFactor)
		}
	}
}

func TestPredictHistoryFallbackLeavesScoreUnadjusted(t *testing.T) {
	adjuster := &fakeAdjuster{factors: map[string]history.Adjustment{
		"Karayel": {Factor: 1.0, Fallback: true},
	}}
	e := newTestEngine(t, DefaultConfig(), adjuster)

	dist, err := e.Predict(context.Background(), models.PredictRequest{Entrants: raceCard()})
	require.NoError(t, err)

	for _, entry := range dist.Entries {
		if entry.Name == "Karayel" {
			for _, rec := range entry.Scores {
				assert.Nil(t, rec.AdjustedScore)
			}
		}
	}
}

func TestPredictSkipsHistoryWhenNoModelUsesIt(t *testing.T) {
	adjuster := new(MockAdjuster)
	cfg := singleModel(map[string]float64{models.FactorMarket: 1})
	e := newTestEngine(t, cfg, adjuster)

	_, err := e.Predict(context.Background(), models.PredictRequest{Entrants: raceCard()})
	require.NoError(t, err)

	adjuster.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything)
}

func TestPredictValidation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	entrants := raceCard()

	unknown := DefaultModels()
	unknown[0].Weights["speed"] = 1

	badSum := DefaultModels()
	badSum[1].MixingWeight = 0.3

	negative := DefaultModels()
	negative[0].MixingWeight = 1.4
	negative[1].MixingWeight = -0.4

	dupModel := DefaultModels()
	dupModel[1].Name = dupModel[0].Name

	tests := []struct {
		name string
		req  models.PredictRequest
		code string
	}{
		{"no entrants", models.PredictRequest{}, models.CodeEmptyEntrants},
		{"blank name", models.PredictRequest{Entrants: []models.EntrantRecord{{Name: "A"}, {Name: "  "}}}, models.CodeEmptyIdentifier},
		{"duplicate name", models.PredictRequest{Entrants: []models.EntrantRecord{{Name: "Şahin"}, {Name: "SAHIN"}}}, models.CodeDuplicateEntrant},
		{"unknown factor", models.PredictRequest{Entrants: entrants, Models: unknown}, models.CodeUnknownFactor},
		{"mixing sum", models.PredictRequest{Entrants: entrants, Models: badSum}, models.CodeMixingWeights},
		{"mixing range", models.PredictRequest{Entrants: entrants, Models: negative}, models.CodeMixingWeights},
		{"duplicate model", models.PredictRequest{Entrants: entrants, Models: dupModel}, models.CodeInvalidModel},
		{"bad surface", models.PredictRequest{Entrants: entrants, Race: models.RaceContext{Surface: "ice"}}, models.CodeInvalidRace},
		{"bad distance", models.PredictRequest{Entrants: entrants, Race: models.RaceContext{Distance: -5}}, models.CodeInvalidRace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := e.Predict(context.Background(), tt.req)
			assert.Nil(t, dist)
			assert.Equal(t, tt.code, validationCode(t, err))
		})
	}
}

func TestPredictCancelledContext(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dist, err := e.Predict(ctx, models.PredictRequest{Entrants: raceCard()})

	assert.Nil(t, dist)
	require.Error(t, err)
	assert.False(t, models.IsValidationError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models[0].MixingWeight = 0.9

	_, err := New(cfg, scoring.NewScorer(scoring.DefaultTables()), nil, nil)
	require.Error(t, err)
	assert.True(t, models.IsValidationError(err))

	_, err = New(DefaultConfig(), nil, nil, nil)
	assert.Error(t, err)
}

func TestModelsReturnsCopy(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)

	got := e.Models()
	got[0].Weights[models.FactorForm] = 99

	assert.Equal(t, 2.0, e.Models()[0].Weights[models.FactorForm])
}
