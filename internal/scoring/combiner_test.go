package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/race-odds/internal/models"
)

func TestCombine(t *testing.T) {
	sub := SubScores{
		models.FactorForm:   2,
		models.FactorMarket: 3,
		models.FactorSlot:   1,
	}

	got := Combine(sub, map[string]float64{
		models.FactorForm:   2,
		models.FactorMarket: 0.5,
	})
	assert.InDelta(t, 5.5, got, 1e-9)

	assert.Equal(t, 0.0, Combine(sub, map[string]float64{models.FactorRest: 3}))
}

func TestCombineDifferentVectorsSameSubScores(t *testing.T) {
	sub := SubScores{models.FactorForm: 4, models.FactorRecent: 6}

	a := Combine(sub, map[string]float64{models.FactorForm: 1})
	b := Combine(sub, map[string]float64{models.FactorRecent: 1})

	assert.NotEqual(t, a, b)
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights(map[string]float64{models.FactorForm: 1}))

	err := ValidateWeights(map[string]float64{"speed": 1, "form": 1})
	require.Error(t, err)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.CodeUnknownFactor, verr.Code)
	assert.Contains(t, verr.Message, "speed")

	err = ValidateWeights(map[string]float64{models.FactorForm: math.NaN()})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.CodeInvalidModel, verr.Code)

	assert.Error(t, ValidateWeights(nil))
}
