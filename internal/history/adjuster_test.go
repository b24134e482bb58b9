package history

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-odds/internal/models"
)

type stubStore struct {
	records []models.HistoricalRecord
	err     error
	block   bool
}

// sleepyStore never looks at its context.
type sleepyStore struct {
	delay time.Duration
}

func (s sleepyStore) Query(context.Context, string) ([]models.HistoricalRecord, error) {
	time.Sleep(s.delay)
	return []models.HistoricalRecord{{HorseName: "Late", Position: 1}}, nil
}

func (s *stubStore) Query(ctx context.Context, _ string) ([]models.HistoricalRecord, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.records, s.err
}

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger, buf
}

func onlySensitivity(s Sensitivities) AdjusterConfig {
	cfg := DefaultAdjusterConfig()
	cfg.Sensitivity = s
	return cfg
}

var raceDay = time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)

func past(daysAgo int, venue string, surface models.Surface, distance, position int) models.HistoricalRecord {
	return models.HistoricalRecord{
		HorseName: "Test",
		RaceDate:  raceDay.AddDate(0, 0, -daysAgo),
		Venue:     venue,
		Surface:   surface,
		Distance:  distance,
		Position:  position,
	}
}

func TestAdjustNoRecordsIsExactlyNeutral(t *testing.T) {
	logger, _ := setupTestLogger()
	a := NewAdjuster(&stubStore{}, DefaultAdjusterConfig(), logger)

	adj := a.Adjust(context.Background(), "Nobody", models.RaceContext{Venue: "Istanbul", Surface: models.SurfaceTurf, Distance: 1600, Date: raceDay})

	assert.Equal(t, 1.0, adj.Factor)
	assert.Zero(t, adj.Records)
	assert.False(t, adj.Fallback)
}

func TestAdjustNilStore(t *testing.T) {
	a := NewAdjuster(nil, DefaultAdjusterConfig(), nil)
	assert.Equal(t, 1.0, a.Adjust(context.Background(), "X", models.RaceContext{}).Factor)
}

func TestAdjustStoreErrorIsAbsorbed(t *testing.T) {
	logger, buf := setupTestLogger()
	a := NewAdjuster(&stubStore{err: errors.New("connection refused")}, DefaultAdjusterConfig(), logger)

	adj := a.Adjust(context.Background(), "Karayel", models.RaceContext{Date: raceDay})

	assert.Equal(t, 1.0, adj.Factor)
	assert.True(t, adj.Fallback)
	assert.Contains(t, buf.String(), "History lookup failed")
	assert.Contains(t, buf.String(), "Karayel")
}

func TestAdjustTimeoutIsAbsorbed(t *testing.T) {
	logger, buf := setupTestLogger()
	cfg := DefaultAdjusterConfig()
	cfg.Timeout = 20 * time.Millisecond
	a := NewAdjuster(&stubStore{block: true}, cfg, logger)

	start := time.Now()
	adj := a.Adjust(context.Background(), "Slow", models.RaceContext{Date: raceDay})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, adj.Factor)
	assert.True(t, adj.Fallback)
	assert.Contains(t, buf.String(), "timeout")
}

func TestAdjustTimeoutBoundsStoreIgnoringContext(t *testing.T) {
	logger, buf := setupTestLogger()
	cfg := DefaultAdjusterConfig()
	cfg.Timeout = 50 * time.Millisecond
	a := NewAdjuster(sleepyStore{delay: 2 * time.Second}, cfg, logger)

	start := time.Now()
	adj := a.Adjust(context.Background(), "Deaf", models.RaceContext{Date: raceDay})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, adj.Factor)
	assert.True(t, adj.Fallback)
	assert.Contains(t, buf.String(), `"result":"timeout"`)
}

func TestComputeSurface(t *testing.T) {
	a := NewAdjuster(nil, onlySensitivity(Sensitivities{Surface: 0.2}), nil)
	race := models.RaceContext{Surface: models.SurfaceTurf, Date: raceDay}

	good := a.Compute([]models.HistoricalRecord{
		past(30, "A", models.SurfaceTurf, 1600, 1),
		past(20, "A", models.SurfaceTurf, 1600, 1),
		past(10, "A", models.SurfaceDirt, 1600, 9),
	}, race)
	assert.InDelta(t, 1.16, good.Factor, 1e-9)

	bad := a.Compute([]models.HistoricalRecord{
		past(30, "A", models.SurfaceTurf, 1600, 9),
		past(20, "A", models.SurfaceTurf, 1600, 0),
	}, race)
	// mean of 9 and unplaced (10) is 9.5
	assert.InDelta(t, 1+0.2*(5-9.5)/5, bad.Factor, 1e-9)
	assert.Less(t, bad.Factor, 1.0)
}

func TestComputeDistanceTolerance(t *testing.T) {
	a := NewAdjuster(nil, onlySensitivity(Sensitivities{Distance: 0.25}), nil)
	race := models.RaceContext{Distance: 1800, Date: raceDay}

	adj := a.Compute([]models.HistoricalRecord{
		past(30, "A", "", 1600, 1),
		past(20, "A", "", 2000, 1),
		past(10, "A", "", 1500, 9),
	}, race)

	assert.InDelta(t, 1+0.25*(5-1)/5.0, adj.Factor, 1e-9)
}

func TestComputeTravel(t *testing.T) {
	a := NewAdjuster(nil, onlySensitivity(Sensitivities{Travel: 0.1}), nil)
	race := models.RaceContext{Venue: "Ankara", Date: raceDay}

	records := []models.HistoricalRecord{
		past(90, "Istanbul", "", 0, 5),
		past(60, "Ankara", "", 0, 1),
		past(30, "Istanbul", "", 0, 4),
	}
	adj := a.Compute(records, race)
	assert.InDelta(t, 1.08, adj.Factor, 1e-9)

	// last start already at the race venue: no travel effect
	home := append(records, past(5, "ankara", "", 0, 9))
	adj = a.Compute(home, race)
	assert.Equal(t, 1.0, adj.Dimensions[DimensionTravel])
}

func TestComputeSeasonalIgnoresFutureRecords(t *testing.T) {
	a := NewAdjuster(nil, onlySensitivity(Sensitivities{Seasonal: 0.15}), nil)
	race := models.RaceContext{Venue: "Izmir", Date: raceDay}

	adj := a.Compute([]models.HistoricalRecord{
		past(365, "Izmir", "", 0, 1),  // July last year, same season
		past(180, "Izmir", "", 0, 9),  // January, other season
		past(-10, "Izmir", "", 0, 10), // after the race date
	}, race)

	assert.Equal(t, 2, adj.Records)
	assert.InDelta(t, 1+0.15*(5-1)/5.0, adj.Factor, 1e-9)
}

func TestComputeDimensionsStack(t *testing.T) {
	cfg := onlySensitivity(Sensitivities{Surface: 0.2, Venue: 0.2})
	a := NewAdjuster(nil, cfg, nil)
	race := models.RaceContext{Venue: "Bursa", Surface: models.SurfaceDirt, Date: raceDay}

	adj := a.Compute([]models.HistoricalRecord{
		past(20, "Bursa", models.SurfaceDirt, 1400, 1),
	}, race)

	require.Len(t, adj.Dimensions, 5)
	assert.InDelta(t, 1.16, adj.Dimensions[DimensionSurface], 1e-9)
	assert.InDelta(t, 1.16, adj.Dimensions[DimensionVenue], 1e-9)
	assert.InDelta(t, 1.16*1.16, adj.Factor, 1e-9)
}

func TestComputeClamp(t *testing.T) {
	cfg := onlySensitivity(Sensitivities{Venue: 5})
	a := NewAdjuster(nil, cfg, nil)

	adj := a.Compute([]models.HistoricalRecord{past(20, "Bursa", "", 0, 1)},
		models.RaceContext{Venue: "Bursa", Date: raceDay})
	assert.Equal(t, cfg.MaxFactor, adj.Factor)

	adj = a.Compute([]models.HistoricalRecord{past(20, "Bursa", "", 0, 0)},
		models.RaceContext{Venue: "Bursa", Date: raceDay})
	assert.Equal(t, cfg.MinFactor, adj.Factor)
}

func TestApply(t *testing.T) {
	assert.InDelta(t, 12.0, Apply(10, 1.2), 1e-9)
	assert.InDelta(t, -8.0, Apply(-10, 1.25), 1e-9)
	assert.InDelta(t, 10.0, Apply(10, 0), 1e-9)
	assert.Greater(t, Apply(-10, 1.25), Apply(-10, 1.0))
}
