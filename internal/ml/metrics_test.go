package ml

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_KnownValues(t *testing.T) {
	actual := []float64{3, -0.5, 2, 7}
	predicted := []float64{2.5, 0.0, 2, 8}

	m, err := Evaluate(actual, predicted)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.MAE, 1e-12)
	assert.InDelta(t, 0.375, m.MSE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.375), m.RMSE, 1e-12)
	assert.InDelta(t, 0.9486081370449679, m.R2, 1e-12)
}

func TestEvaluate_RMSEIsRootOfMSE(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		actual := make([]float64, n)
		predicted := make([]float64, n)
		for i := 0; i < n; i++ {
			actual[i] = rng.NormFloat64() * 100
			predicted[i] = rng.NormFloat64() * 100
		}
		m, err := Evaluate(actual, predicted)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(m.MSE), m.RMSE, 1e-9)
		assert.GreaterOrEqual(t, m.MAE, 0.0)
		assert.LessOrEqual(t, m.R2, 1.0)
	}
}

func TestR2Score_ConstantTarget(t *testing.T) {
	assert.Equal(t, 1.0, R2Score([]float64{2, 2}, []float64{2, 2}))
	assert.Equal(t, 0.0, R2Score([]float64{2, 2}, []float64{1, 3}))
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
	_, err = Evaluate(nil, nil)
	assert.Error(t, err)
}

func TestResiduals(t *testing.T) {
	assert.Equal(t, []float64{1, -2}, Residuals([]float64{3, 1}, []float64{2, 3}))
}
