package engine

import "github.com/yourusername/race-odds/internal/models"

// Config controls the prediction engine.
type Config struct {
	Models []models.ModelConfig `mapstructure:"models" validate:"required,min=1,dive"`
	// Workers bounds the per-entrant fan-out.
	Workers int `mapstructure:"workers" validate:"gte=1,lte=256"`
	// MixingTolerance is the accepted deviation of the mixing weights' sum from 1.
	MixingTolerance float64 `mapstructure:"mixing_tolerance" validate:"gt=0,lt=0.01"`
}

// DefaultConfig returns the stock two-model configuration.
func DefaultConfig() Config {
	return Config{
		Models:          DefaultModels(),
		Workers:         8,
		MixingTolerance: 1e-9,
	}
}

// DefaultModels returns the deterministic weighted model and the Bayesian-prior
// model, blended 60/40.
func DefaultModels() []models.ModelConfig {
	return []models.ModelConfig{
		{
			Name: "weighted",
			Weights: map[string]float64{
				models.FactorForm:     2.0,
				models.FactorMarket:   1.5,
				models.FactorPedigree: 1.2,
				models.FactorPenalty:  1.0,
				models.FactorSlot:     0.5,
				models.FactorRecent:   0.25,
				models.FactorWeight:   0.2,
				models.FactorClass:    0.1,
			},
			UseHistory:   true,
			MixingWeight: 0.6,
		},
		{
			Name: "bayesian",
			Weights: map[string]float64{
				models.FactorRecent: 0.6,
				models.FactorWeight: 0.3,
				models.FactorRest:   1.5,
				models.FactorClass:  0.8,
				models.FactorMarket: 0.5,
			},
			UseHistory:   false,
			MixingWeight: 0.4,
			Prior:        16.0,
		},
	}
}
