package ml

import (
	"math"

	"lumen/internal/errors"
)

// Metrics are the held-out evaluation scores of one model
type Metrics struct {
	MAE  float64
	MSE  float64
	RMSE float64
	R2   float64
}

// Evaluate computes MAE, MSE, RMSE (as the square root of MSE) and R²
func Evaluate(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, errors.InvalidInput("actual and predicted lengths differ")
	}
	if len(actual) == 0 {
		return Metrics{}, errors.EmptyDataset("cannot evaluate on zero rows")
	}

	mse := MeanSquaredError(actual, predicted)
	return Metrics{
		MAE:  MeanAbsoluteError(actual, predicted),
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		R2:   R2Score(actual, predicted),
	}, nil
}

// MeanAbsoluteError returns mean(|y - ŷ|)
func MeanAbsoluteError(actual, predicted []float64) float64 {
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// MeanSquaredError returns mean((y - ŷ)²)
func MeanSquaredError(actual, predicted []float64) float64 {
	sum := 0.0
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

// R2Score returns the coefficient of determination. For a constant target the score is
// 1 when predictions are exact and 0 otherwise.
func R2Score(actual, predicted []float64) float64 {
	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	ssRes, ssTot := 0.0, 0.0
	for i := range actual {
		r := actual[i] - predicted[i]
		t := actual[i] - mean
		ssRes += r * r
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// Residuals returns y - ŷ element-wise
func Residuals(actual, predicted []float64) []float64 {
	out := make([]float64, len(actual))
	for i := range actual {
		out[i] = actual[i] - predicted[i]
	}
	return out
}
