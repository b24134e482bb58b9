package models

// Factor names understood by the scorers and accepted in weight vectors.
const (
	FactorForm     = "form"
	FactorRecent   = "recent"
	FactorMarket   = "market"
	FactorWeight   = "weight"
	FactorPenalty  = "penalty"
	FactorSlot     = "slot"
	FactorPedigree = "pedigree"
	FactorRest     = "rest"
	FactorClass    = "class"
)

// KnownFactors lists every factor in scoring order.
var KnownFactors = []string{
	FactorForm,
	FactorRecent,
	FactorMarket,
	FactorWeight,
	FactorPenalty,
	FactorSlot,
	FactorPedigree,
	FactorRest,
	FactorClass,
}

// IsKnownFactor reports whether name is a recognized factor.
func IsKnownFactor(name string) bool {
	for _, f := range KnownFactors {
		if f == name {
			return true
		}
	}
	return false
}

// ModelConfig parameterizes one scoring pipeline.
type ModelConfig struct {
	Name         string             `mapstructure:"name" json:"name" validate:"required"`
	Weights      map[string]float64 `mapstructure:"weights" json:"weights" validate:"required,min=1,dive,keys,factor,endkeys"`
	UseHistory   bool               `mapstructure:"use_history" json:"use_history"`
	MixingWeight float64            `mapstructure:"mixing_weight" json:"mixing_weight" validate:"gte=0,lte=1"`
	// Prior is added to every base score before adjustment.
	Prior float64 `mapstructure:"prior" json:"prior"`
}

// Clone returns a deep copy so callers cannot mutate a loaded configuration.
func (m ModelConfig) Clone() ModelConfig {
	weights := make(map[string]float64, len(m.Weights))
	for k, v := range m.Weights {
		weights[k] = v
	}
	m.Weights = weights
	return m
}
