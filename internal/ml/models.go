package ml

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"lumen/internal/errors"
)

// Regressor is a model mapping a feature matrix to one continuous target
type Regressor interface {
	Name() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Model kinds, also the display names used in reports and artifact names
const (
	KindLinear  = "LinearRegression"
	KindForest  = "RandomForest"
	KindBoosted = "XGBoost"
)

// LinearRegression is ordinary least squares on a single feature
type LinearRegression struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	fitted    bool
}

func NewLinearRegression() *LinearRegression { return &LinearRegression{} }

func (m *LinearRegression) Name() string { return KindLinear }

// Fit estimates intercept and slope with gonum's least squares
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	if err := checkTraining(X, y); err != nil {
		return err
	}
	if len(X[0]) != 1 {
		return errors.InvalidInput("linear regression expects exactly one feature")
	}
	m.Intercept, m.Slope = stat.LinearRegression(column(X, 0), y, nil, false)
	m.fitted = true
	return nil
}

func (m *LinearRegression) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, errors.InvalidInput("linear regression is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.Intercept + m.Slope*row[0]
	}
	return out, nil
}

// RandomForest averages CART trees grown on bootstrap samples
type RandomForest struct {
	NTrees int     `json:"n_trees"`
	Seed   int64   `json:"seed"`
	Trees  []*Tree `json:"trees"`
}

func NewRandomForest(nTrees int, seed int64) *RandomForest {
	return &RandomForest{NTrees: nTrees, Seed: seed}
}

func (m *RandomForest) Name() string { return KindForest }

func (m *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := checkTraining(X, y); err != nil {
		return err
	}
	if m.NTrees <= 0 {
		return errors.InvalidInput("random forest needs at least one tree")
	}

	rng := rand.New(rand.NewSource(m.Seed))
	params := TreeParams{MinSamplesSplit: 2, MinSamplesLeaf: 1}
	n := len(y)
	m.Trees = make([]*Tree, 0, m.NTrees)
	for t := 0; t < m.NTrees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		m.Trees = append(m.Trees, GrowTree(X, y, idx, params))
	}
	return nil
}

func (m *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, errors.InvalidInput("random forest is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		sum := 0.0
		for _, tree := range m.Trees {
			sum += tree.PredictRow(row)
		}
		out[i] = sum / float64(len(m.Trees))
	}
	return out, nil
}

// GradientBoosting fits squared-error boosted trees with L2-regularized leaf weights
type GradientBoosting struct {
	Rounds       int     `json:"rounds"`
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"max_depth"`
	Lambda       float64 `json:"lambda"`
	BaseScore    float64 `json:"base_score"`
	Trees        []*Tree `json:"trees"`
}

func NewGradientBoosting(rounds int, learningRate float64, maxDepth int) *GradientBoosting {
	return &GradientBoosting{
		Rounds:       rounds,
		LearningRate: learningRate,
		MaxDepth:     maxDepth,
		Lambda:       1,
	}
}

func (m *GradientBoosting) Name() string { return KindBoosted }

func (m *GradientBoosting) Fit(X [][]float64, y []float64) error {
	if err := checkTraining(X, y); err != nil {
		return err
	}
	if m.Rounds <= 0 || m.LearningRate <= 0 {
		return errors.InvalidInput("boosting needs positive rounds and learning rate")
	}

	m.BaseScore = stat.Mean(y, nil)
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.BaseScore
	}

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	params := TreeParams{MaxDepth: m.MaxDepth, MinSamplesSplit: 2, MinSamplesLeaf: 1, Lambda: m.Lambda}
	residual := make([]float64, len(y))

	m.Trees = make([]*Tree, 0, m.Rounds)
	for r := 0; r < m.Rounds; r++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tree := GrowTree(X, residual, idx, params)
		for i, row := range X {
			pred[i] += m.LearningRate * tree.PredictRow(row)
		}
		m.Trees = append(m.Trees, tree)
	}
	return nil
}

func (m *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if m.Trees == nil {
		return nil, errors.InvalidInput("gradient boosting is not fitted")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := m.BaseScore
		for _, tree := range m.Trees {
			v += m.LearningRate * tree.PredictRow(row)
		}
		out[i] = v
	}
	return out, nil
}

func checkTraining(X [][]float64, y []float64) error {
	if len(y) == 0 {
		return errors.EmptyDataset("cannot fit on zero rows")
	}
	if len(X) != len(y) {
		return errors.InvalidInput("feature and target lengths differ")
	}
	if len(X[0]) == 0 {
		return errors.InvalidInput("feature matrix has no columns")
	}
	return nil
}
