// Package engine turns a race card into a blended, ranked win-probability
// distribution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/race-odds/internal/features"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/logger"
	"github.com/yourusername/race-odds/internal/metrics"
	"github.com/yourusername/race-odds/internal/models"
	"github.com/yourusername/race-odds/internal/scoring"
)

// HistoryAdjuster computes the history multiplier of one entrant. It must never
// fail; unavailable history is reported as a neutral adjustment.
type HistoryAdjuster interface {
	Adjust(ctx context.Context, name string, race models.RaceContext) history.Adjustment
}

// Engine runs every configured model over a race and blends the results. It
// holds no per-request state and is safe for concurrent use.
type Engine struct {
	cfg      Config
	scorer   *scoring.Scorer
	adjuster HistoryAdjuster
	log      *logger.PredictionLogger
	validate *validator.Validate
	now      func() time.Time
}

// New creates an Engine. adjuster may be nil, in which case history-enabled models
// score without adjustment.
func New(cfg Config, scorer *scoring.Scorer, adjuster HistoryAdjuster, log *logrus.Logger) (*Engine, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MixingTolerance <= 0 {
		cfg.MixingTolerance = DefaultConfig().MixingTolerance
	}
	if err := ValidateModels(cfg.Models, cfg.MixingTolerance); err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	configs := make([]models.ModelConfig, len(cfg.Models))
	for i, m := range cfg.Models {
		configs[i] = m.Clone()
	}
	cfg.Models = configs

	metrics.UpdateConfiguredModels(len(configs))

	return &Engine{
		cfg:      cfg,
		scorer:   scorer,
		adjuster: adjuster,
		log:      logger.NewPredictionLogger(log),
		validate: newValidator(),
		now:      time.Now,
	}, nil
}

// Models returns a copy of the configured models.
func (e *Engine) Models() []models.ModelConfig {
	out := make([]models.ModelConfig, len(e.cfg.Models))
	for i, m := range e.cfg.Models {
		out[i] = m.Clone()
	}
	return out
}

// evaluation is the model-independent part of scoring one entrant.
type evaluation struct {
	features   features.Features
	sub        scoring.SubScores
	adjustment history.Adjustment
	adjusted   bool
}

// Predict validates the request, scores every entrant under every model and
// returns the blended distribution sorted by probability. Ties keep input order.
// Precondition failures are returned as *models.ValidationError before any scoring.
func (e *Engine) Predict(ctx context.Context, req models.PredictRequest) (*models.RankedDistribution, error) {
	start := time.Now()

	configs := e.cfg.Models
	if len(req.Models) > 0 {
		configs = make([]models.ModelConfig, len(req.Models))
		for i, m := range req.Models {
			configs[i] = m.Clone()
		}
	}

	race, err := e.prepare(req, configs)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			metrics.RecordValidationFailure(verr.Code)
			e.log.LogValidationRejected(req.Race.RaceID, verr.Code, verr.Message)
		}
		return nil, err
	}

	evals, err := e.evaluate(ctx, req.Entrants, race, usesHistory(configs))
	if err != nil {
		metrics.RecordPredictionFailure("cancelled")
		return nil, err
	}

	predictionID := uuid.New()
	n := len(evals)
	blended := make([]float64, n)
	perModel := make([][]models.ScoreRecord, n)

	for _, m := range configs {
		records, probs, err := e.runModel(m, evals)
		if err != nil {
			metrics.RecordPredictionFailure("invariant")
			e.log.LogInvariantViolation(predictionID.String(), m.Name, err)
			return nil, err
		}

		byName := make(map[string]float64, n)
		for i := range evals {
			blended[i] += m.MixingWeight * probs[i]
			perModel[i] = append(perModel[i], records[i])
			byName[evals[i].features.Name] = probs[i]
		}
		e.log.LogModelDistribution(predictionID.String(), m.Name, byName)
	}

	if err := CheckDistribution(blended); err != nil {
		metrics.RecordPredictionFailure("invariant")
		e.log.LogInvariantViolation(predictionID.String(), "blend", err)
		return nil, err
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return blended[order[a]] > blended[order[b]]
	})

	dist := &models.RankedDistribution{
		PredictionID: predictionID,
		Race:         race,
		Entries:      make([]models.RankedEntry, n),
		Models:       make([]models.ModelSummary, len(configs)),
		GeneratedAt:  e.now().UTC(),
	}
	for i, m := range configs {
		dist.Models[i] = models.ModelSummary{Name: m.Name, MixingWeight: m.MixingWeight, UseHistory: m.UseHistory}
	}
	for rank, idx := range order {
		entry := models.RankedEntry{
			Rank:        rank + 1,
			Name:        evals[idx].features.Name,
			Probability: blended[idx],
			PerModel:    make(map[string]float64, len(configs)),
			Trend:       features.TrendOf(evals[idx].features.RecentResults),
			Scores:      perModel[idx],
		}
		for _, rec := range perModel[idx] {
			entry.PerModel[rec.Model] = rec.Probability
		}
		dist.Entries[rank] = entry
	}

	elapsed := time.Since(start)
	top := dist.Top()
	metrics.RecordPrediction(elapsed.Seconds(), n, top.Probability)
	e.log.LogPredictionCompleted(predictionID.String(), race.RaceID, n, len(configs),
		top.Name, top.Probability, float64(elapsed.Microseconds())/1000)

	return dist, nil
}

func (e *Engine) prepare(req models.PredictRequest, configs []models.ModelConfig) (models.RaceContext, error) {
	if err := validateEntrants(req.Entrants); err != nil {
		return req.Race, err
	}
	if err := ValidateModels(configs, e.cfg.MixingTolerance); err != nil {
		return req.Race, err
	}

	race, err := prepareRace(req.Race)
	if err != nil {
		return race, err
	}
	if err := e.validateRace(race); err != nil {
		return race, err
	}
	if race.Date.IsZero() {
		race.Date = e.now().UTC()
	}
	return race, nil
}

// evaluate extracts features, sub-scores and, when needed, history adjustments
// for every entrant in parallel. Results keep input order.
func (e *Engine) evaluate(ctx context.Context, entrants []models.EntrantRecord, race models.RaceContext, withHistory bool) ([]evaluation, error) {
	evals := make([]evaluation, len(entrants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i := range entrants {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			f := features.Normalize(entrants[i])
			ev := evaluation{
				features:   f,
				sub:        e.scorer.Score(f, race),
				adjustment: history.Neutral(),
			}
			if withHistory && e.adjuster != nil {
				ev.adjustment = e.adjuster.Adjust(gctx, f.Name, race)
				ev.adjusted = !ev.adjustment.Fallback
			}
			evals[i] = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("prediction abandoned: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("prediction abandoned: %w", err)
	}
	return evals, nil
}

// runModel scores every entrant under one model and normalizes the result.
func (e *Engine) runModel(m models.ModelConfig, evals []evaluation) ([]models.ScoreRecord, []float64, error) {
	records := make([]models.ScoreRecord, len(evals))
	scores := make([]float64, len(evals))

	for i, ev := range evals {
		base := scoring.Combine(ev.sub, m.Weights) + m.Prior
		rec := models.ScoreRecord{
			Model:         m.Name,
			SubScores:     ev.sub,
			BaseScore:     base,
			HistoryFactor: 1.0,
		}
		if m.UseHistory && ev.adjusted {
			adjusted := history.Apply(base, ev.adjustment.Factor)
			rec.HistoryFactor = ev.adjustment.Factor
			rec.AdjustedScore = &adjusted
		}
		records[i] = rec
		scores[i] = rec.FinalScore()
	}

	probs, err := Normalize(scores)
	if err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	for i := range records {
		records[i].Probability = probs[i]
	}
	return records, probs, nil
}

func usesHistory(configs []models.ModelConfig) bool {
	for _, m := range configs {
		if m.UseHistory {
			return true
		}
	}
	return false
}
