package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/models"
	"github.com/yourusername/race-odds/internal/scoring"
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("factor", func(fl validator.FieldLevel) bool {
		return models.IsKnownFactor(fl.Field().String())
	})
	return v
}

// prepareRace canonicalizes the surface name. Unknown surfaces are rejected.
func prepareRace(race models.RaceContext) (models.RaceContext, error) {
	surface, ok := models.ParseSurface(string(race.Surface))
	if !ok {
		return race, models.NewValidationError(models.CodeInvalidRace,
			fmt.Sprintf("unknown surface %q", race.Surface))
	}
	race.Surface = surface
	race.Venue = strings.TrimSpace(race.Venue)
	return race, nil
}

func (e *Engine) validateRace(race models.RaceContext) error {
	if err := e.validate.Struct(race); err != nil {
		return models.NewValidationError(models.CodeInvalidRace, err.Error())
	}
	return nil
}

// validateEntrants rejects empty fields, blank names and duplicates. Names are
// compared after history normalization, so "Şahin" and "SAHIN" collide.
func validateEntrants(entrants []models.EntrantRecord) error {
	if len(entrants) == 0 {
		return models.NewValidationError(models.CodeEmptyEntrants, "at least one entrant is required")
	}

	seen := make(map[string]int, len(entrants))
	for i := range entrants {
		name := entrants[i].Identifier()
		if name == "" {
			return models.NewValidationError(models.CodeEmptyIdentifier,
				fmt.Sprintf("entrant at position %d has no name", i+1))
		}
		key := history.NormalizeName(name)
		if first, dup := seen[key]; dup {
			return models.NewValidationError(models.CodeDuplicateEntrant,
				fmt.Sprintf("%q at position %d duplicates position %d", name, i+1, first+1))
		}
		seen[key] = i
	}
	return nil
}

// ValidateModels checks a model set: unique names, known factors, finite weights,
// mixing weights in [0,1] summing to 1 within tolerance.
func ValidateModels(configs []models.ModelConfig, tolerance float64) error {
	if len(configs) == 0 {
		return models.NewValidationError(models.CodeNoModels, "at least one model is required")
	}

	names := make(map[string]struct{}, len(configs))
	sum := 0.0
	for _, m := range configs {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return models.NewValidationError(models.CodeInvalidModel, "model name is required")
		}
		if _, dup := names[name]; dup {
			return models.NewValidationError(models.CodeInvalidModel,
				fmt.Sprintf("model %q is defined twice", name))
		}
		names[name] = struct{}{}

		if err := scoring.ValidateWeights(m.Weights); err != nil {
			return err
		}
		if math.IsNaN(m.Prior) || math.IsInf(m.Prior, 0) {
			return models.NewValidationError(models.CodeInvalidModel,
				fmt.Sprintf("model %q prior is not finite", name))
		}
		if math.IsNaN(m.MixingWeight) || m.MixingWeight < 0 || m.MixingWeight > 1 {
			return models.NewValidationError(models.CodeMixingWeights,
				fmt.Sprintf("model %q mixing weight %g is outside [0, 1]", name, m.MixingWeight))
		}
		sum += m.MixingWeight
	}

	if math.Abs(sum-1.0) > tolerance {
		return models.NewValidationError(models.CodeMixingWeights,
			fmt.Sprintf("mixing weights sum to %g, expected 1", sum))
	}
	return nil
}
