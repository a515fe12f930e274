package ml

import (
	"math"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/errors"
)

func TestStandardScaler_TrainStatistics(t *testing.T) {
	X := SingleFeature([]float64{1, 4, 9, 16, 25, 36, 49, 64})

	var scaler StandardScaler
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	col := column(scaled, 0)
	mean, _ := stats.Mean(col)
	std, _ := stats.StandardDeviationPopulation(col)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, std, 1e-12)
}

func TestStandardScaler_TransformReusesFit(t *testing.T) {
	var scaler StandardScaler
	require.NoError(t, scaler.Fit(SingleFeature([]float64{0, 10})))

	out, err := scaler.Transform(SingleFeature([]float64{5, 100}))
	require.NoError(t, err)

	// mean 5, population std 5
	assert.InDelta(t, 0, out[0][0], 1e-12)
	assert.InDelta(t, 19, out[1][0], 1e-12)
	assert.Equal(t, []float64{5}, scaler.Mean, "test data must not move the fitted mean")
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	var scaler StandardScaler
	out, err := scaler.FitTransform(SingleFeature([]float64{3, 3, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, scaler.Scale)
	for _, row := range out {
		assert.Zero(t, row[0])
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	var scaler StandardScaler
	_, err := scaler.Transform(SingleFeature([]float64{1}))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))

	err = scaler.Fit(nil)
	assert.True(t, errors.HasCode(err, errors.CodeEmptyDataset))

	require.NoError(t, scaler.Fit([][]float64{{1, 2}, {3, 4}}))
	_, err = scaler.Transform(SingleFeature([]float64{1}))
	assert.Error(t, err)
}

func TestLog1p(t *testing.T) {
	out := Log1p(SingleFeature([]float64{0, math.E - 1}))
	assert.Equal(t, 0.0, out[0][0])
	assert.InDelta(t, 1, out[1][0], 1e-12)
}

func TestTrainTestSplit(t *testing.T) {
	n := 10
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	X := SingleFeature(values)

	split, err := TrainTestSplit(X, values, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, split.XTest, 2)
	assert.Len(t, split.XTrain, 8)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, split.TrainIdx...), split.TestIdx...) {
		assert.False(t, seen[i], "index %d assigned twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, n)

	for k, i := range split.TestIdx {
		assert.Equal(t, values[i], split.YTest[k])
		assert.Equal(t, values[i], split.XTest[k][0])
	}

	again, err := TrainTestSplit(X, values, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, split.TestIdx, again.TestIdx, "same seed must give the same split")
}

func TestTrainTestSplit_RoundsTestSizeUp(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	split, err := TrainTestSplit(SingleFeature(values), values, 0.2, 1)
	require.NoError(t, err)
	assert.Len(t, split.YTest, 2)
	assert.Len(t, split.YTrain, 5)
}

func TestTrainTestSplit_TooSmall(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		fraction float64
		code     string
	}{
		{"empty", nil, 0.2, errors.CodeEmptyDataset},
		{"single row", []float64{1}, 0.2, errors.CodeEmptyDataset},
		{"bad fraction", []float64{1, 2, 3}, 1.5, errors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainTestSplit(SingleFeature(tt.values), tt.values, tt.fraction, 42)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}
