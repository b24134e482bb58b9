package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-odds/internal/engine"
	"github.com/yourusername/race-odds/internal/health"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/metrics"
	"github.com/yourusername/race-odds/internal/models"
	"github.com/yourusername/race-odds/internal/scoring"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return log
}

func newTestServer(t *testing.T, predictor Predictor, matcher HistoryMatcher) *Server {
	t.Helper()
	metrics.InitRegistry()

	if predictor == nil {
		e, err := engine.New(engine.DefaultConfig(), scoring.NewScorer(scoring.DefaultTables()), nil, quietLogger())
		require.NoError(t, err)
		predictor = e
	}
	checker := health.NewChecker("race-odds", "test", "")
	checker.SetReady(true)

	return NewServer(Options{MetricsPath: "/metrics"}, predictor, matcher, checker, quietLogger())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const raceCardJSON = `{
  "race": {"race_id": "r1", "venue": "Veliefendi", "surface": "kum", "distance": 1400, "field_size": 3},
  "entrants": [
    {"name": "Karayel", "form": "DB SK", "recent_results": "4 3 1", "weight": "56", "market": "2.40", "slot": 2},
    {"name": "Poyraz", "form": "K", "recent_results": "6 5 4", "weight": "58+5", "market": "7/2", "slot": "6"},
    {"name": "Lodos", "recent_results": "9 8 0", "weight": 61, "market": "22"}
  ]
}`

func TestPredictEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodPost, "/v1/predict", raceCardJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var dist models.RankedDistribution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dist))
	require.Len(t, dist.Entries, 3)
	assert.InDelta(t, 100.0, dist.Total(), 1e-6)
	assert.Equal(t, models.SurfaceDirt, dist.Race.Surface)
	for i, e := range dist.Entries {
		assert.Equal(t, i+1, e.Rank)
		if i > 0 {
			assert.LessOrEqual(t, e.Probability, dist.Entries[i-1].Probability)
		}
	}
}

func TestPredictEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "malformed json", body: `{"entrants": [`, wantStatus: http.StatusBadRequest, wantCode: codeBadRequest},
		{name: "no entrants", body: `{"race": {}, "entrants": []}`, wantStatus: http.StatusBadRequest, wantCode: models.CodeEmptyEntrants},
		{name: "blank name", body: `{"entrants": [{"name": "  "}]}`, wantStatus: http.StatusBadRequest, wantCode: models.CodeEmptyIdentifier},
		{
			name:       "duplicate names",
			body:       `{"entrants": [{"name": "Şahin"}, {"name": "SAHIN"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeDuplicateEntrant,
		},
		{
			name:       "unknown factor in override",
			body:       `{"entrants": [{"name": "A"}], "models": [{"name": "x", "weights": {"jockey": 1}, "mixing_weight": 1}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeUnknownFactor,
		},
	}

	s := newTestServer(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/predict", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

type failingPredictor struct {
	err error
}

func (f failingPredictor) Predict(context.Context, models.PredictRequest) (*models.RankedDistribution, error) {
	return nil, f.err
}

func (f failingPredictor) Models() []models.ModelConfig { return nil }

func TestPredictEndpointInvariantViolation(t *testing.T) {
	err := fmt.Errorf("distribution sums to 99.2: %w", models.ErrInvariantViolation)
	s := newTestServer(t, failingPredictor{err: err}, nil)

	rec := do(t, s, http.MethodPost, "/v1/predict", raceCardJSON)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "invariant_violation")
}

func TestPredictEndpointBodyLimit(t *testing.T) {
	metrics.InitRegistry()
	e, err := engine.New(engine.DefaultConfig(), scoring.NewScorer(scoring.DefaultTables()), nil, quietLogger())
	require.NoError(t, err)
	s := NewServer(Options{MaxBodyBytes: 16}, e, nil, nil, quietLogger())

	rec := do(t, s, http.MethodPost, "/v1/predict", raceCardJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []models.ModelConfig `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Models, 2)
	assert.Equal(t, "weighted", body.Models[0].Name)
}

func TestHistoryEndpoint(t *testing.T) {
	source := history.NewMemorySource([]models.HistoricalRecord{
		{HorseName: "Rüzgar KG", RaceDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), Position: 1},
	})
	s := newTestServer(t, nil, history.NewFuzzyStore(source, history.DefaultMatchTables()))

	rec := do(t, s, http.MethodGet, "/v1/history/R%C3%BCzgar", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RUZGAR", body.Normalized)
	assert.Equal(t, history.MatchSuffix, body.Strategy)
	assert.Len(t, body.Records, 1)

	rec = do(t, s, http.MethodGet, "/v1/history/Nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryRouteAbsentWithoutStore(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodGet, "/v1/history/Karayel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "strategy")
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	s := newTestServer(t, nil, nil)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", "").Code)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "race_odds_")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/predict", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
