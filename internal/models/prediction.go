package models

import (
	"time"

	"github.com/google/uuid"
)

// Trend summarizes the direction of an entrant's recent results.
type Trend string

// Trend values
const (
	TrendUnknown   Trend = "unknown"
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// PredictRequest is the input of a single race prediction.
type PredictRequest struct {
	Entrants []EntrantRecord `json:"entrants"`
	Race     RaceContext     `json:"race"`
	// Models overrides the engine's configured models when non-empty.
	Models []ModelConfig `json:"models,omitempty"`
}

// ScoreRecord is the score trail of one entrant under one model.
type ScoreRecord struct {
	Model         string             `json:"model"`
	SubScores     map[string]float64 `json:"sub_scores"`
	BaseScore     float64            `json:"base_score"`
	HistoryFactor float64            `json:"history_factor"`
	AdjustedScore *float64           `json:"adjusted_score,omitempty"`
	Probability   float64            `json:"probability"`
}

// FinalScore returns the adjusted score when present, otherwise the base score.
func (s *ScoreRecord) FinalScore() float64 {
	if s.AdjustedScore != nil {
		return *s.AdjustedScore
	}
	return s.BaseScore
}

// RankedEntry is one line of a ranked distribution.
type RankedEntry struct {
	Rank        int                `json:"rank"`
	Name        string             `json:"name"`
	Probability float64            `json:"probability"`
	PerModel    map[string]float64 `json:"per_model"`
	Trend       Trend              `json:"trend"`
	Scores      []ScoreRecord      `json:"scores"`
}

// ModelSummary describes a model that took part in a prediction.
type ModelSummary struct {
	Name         string  `json:"name"`
	MixingWeight float64 `json:"mixing_weight"`
	UseHistory   bool    `json:"use_history"`
}

// RankedDistribution is the blended, ranked result of a prediction.
type RankedDistribution struct {
	PredictionID uuid.UUID      `json:"prediction_id"`
	Race         RaceContext    `json:"race"`
	Entries      []RankedEntry  `json:"entries"`
	Models       []ModelSummary `json:"models"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// Total returns the sum of all entry probabilities.
func (d *RankedDistribution) Total() float64 {
	total := 0.0
	for _, e := range d.Entries {
		total += e.Probability
	}
	return total
}

// Top returns the highest ranked entry, or nil for an empty distribution.
func (d *RankedDistribution) Top() *RankedEntry {
	if len(d.Entries) == 0 {
		return nil
	}
	return &d.Entries[0]
}
