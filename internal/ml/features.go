// Package ml holds the regression models, feature scaling, splitting and metrics
// used to relate light intensity to anxiety prevalence.
package ml

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"lumen/internal/errors"
)

// StandardScaler standardizes each feature to zero mean and unit variance.
// Variance is the population variance; a constant feature keeps scale 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes per-feature mean and standard deviation
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.EmptyDataset("cannot fit scaler on zero rows")
	}
	width := len(X[0])
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)

	for j := 0; j < width; j++ {
		col := column(X, j)
		mean, err := stats.Mean(col)
		if err != nil {
			return errors.Wrapf(err, "failed to compute mean of feature %d", j)
		}
		std, err := stats.StandardDeviationPopulation(col)
		if err != nil {
			return errors.Wrapf(err, "failed to compute deviation of feature %d", j)
		}
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return nil
}

// Transform applies the fitted parameters; it never refits
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if len(s.Mean) == 0 {
		return nil, errors.InvalidInput("scaler is not fitted")
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, errors.InvalidInput("feature width does not match fitted scaler")
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits on X and returns X transformed
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Log1p returns a copy of X with log(1+x) applied to every value
func Log1p(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		transformed := make([]float64, len(row))
		for j, v := range row {
			transformed[j] = math.Log1p(v)
		}
		out[i] = transformed
	}
	return out
}

// SingleFeature wraps a value slice as a one-column feature matrix
func SingleFeature(values []float64) [][]float64 {
	X := make([][]float64, len(values))
	for i, v := range values {
		X[i] = []float64{v}
	}
	return X
}

// FeatureMatrix builds the single-predictor matrix from light intensity, optionally
// log1p-transformed. Scaling is applied separately.
func FeatureMatrix(light []float64, log1p bool) [][]float64 {
	X := SingleFeature(light)
	if log1p {
		return Log1p(X)
	}
	return X
}

// Split is a train/test partition of a dataset
type Split struct {
	XTrain, XTest [][]float64
	YTrain, YTest []float64
	TrainIdx      []int
	TestIdx       []int
}

// TrainTestSplit shuffles row indexes with the seed, puts the first ceil(frac*n) rows in
// the test set and the rest in the training set
func TrainTestSplit(X [][]float64, y []float64, testFraction float64, seed int64) (*Split, error) {
	n := len(y)
	if len(X) != n {
		return nil, errors.InvalidInput("feature and target lengths differ")
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, errors.InvalidInput("test fraction must be between 0 and 1")
	}

	nTest := int(math.Ceil(testFraction * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, errors.EmptyDataset("dataset too small to split into train and test sets")
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	split := &Split{
		TestIdx:  append([]int(nil), perm[:nTest]...),
		TrainIdx: append([]int(nil), perm[nTest:]...),
	}
	for _, i := range split.TrainIdx {
		split.XTrain = append(split.XTrain, X[i])
		split.YTrain = append(split.YTrain, y[i])
	}
	for _, i := range split.TestIdx {
		split.XTest = append(split.XTest, X[i])
		split.YTest = append(split.YTest, y[i])
	}
	return split, nil
}

func column(X [][]float64, j int) []float64 {
	col := make([]float64, len(X))
	for i, row := range X {
		col[i] = row[j]
	}
	return col
}
