// Package visualize reloads the persisted models and plots their predictions against the
// modeling table.
package visualize

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	domainDataset "lumen/domain/dataset"
	"lumen/internal/config"
	"lumen/internal/dataset"
	"lumen/internal/errors"
	"lumen/internal/ml"
	"lumen/internal/plotting"
)

// Prediction holds one model's predictions over the full modeling table
type Prediction struct {
	Model     string
	Actual    []float64
	Predicted []float64
	Residuals []float64
}

// Predict loads the named model and predicts every row of the table. With the refit
// policy the scaler is fit fresh on the table; with the persisted policy the scaler
// stored beside the model is reused.
func Predict(modelDir, kind string, table *domainDataset.ModelingTable, log1p bool, policy config.ScalerPolicy) (*Prediction, error) {
	model, artifact, err := ml.LoadModel(modelDir, kind)
	if err != nil {
		return nil, err
	}

	if policy == config.ScalerPersisted {
		log1p = artifact.Log1p
	}
	X := ml.FeatureMatrix(table.LightIntensity, log1p)

	var scaled [][]float64
	switch policy {
	case config.ScalerPersisted:
		scaled, err = artifact.Scaler.Transform(X)
	default:
		var scaler ml.StandardScaler
		scaled, err = scaler.FitTransform(X)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scale features for %s", kind)
	}

	predicted, err := model.Predict(scaled)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to predict with %s", kind)
	}
	return &Prediction{
		Model:     kind,
		Actual:    table.Prevalence,
		Predicted: predicted,
		Residuals: ml.Residuals(table.Prevalence, predicted),
	}, nil
}

// PlotFiles returns the prediction and residual plot paths for a model
func PlotFiles(plotDir, kind string) (predVsActual, residuals string) {
	lower := strings.ToLower(kind)
	return filepath.Join(plotDir, lower+"_pred_vs_actual.png"),
		filepath.Join(plotDir, lower+"_residuals.png")
}

// Visualizer runs the visualization stage
type Visualizer struct {
	paths  config.PathConfig
	log1p  bool
	policy config.ScalerPolicy
	out    io.Writer
	logger *zap.Logger
}

// NewVisualizer creates a visualizer from configuration
func NewVisualizer(cfg *config.Config, out io.Writer, logger *zap.Logger) *Visualizer {
	return &Visualizer{
		paths:  cfg.Paths,
		log1p:  cfg.Training.Log1p,
		policy: cfg.Inference.Scaler,
		out:    out,
		logger: logger,
	}
}

// Run renders the predicted-vs-actual and residual plots of every trained model
func (v *Visualizer) Run() ([]string, error) {
	start := time.Now()
	table, err := dataset.LoadModelingTable(v.paths.ModelTable, v.logger)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, kind := range ml.Kinds {
		fmt.Fprintf(v.out, "Visualizing %s...\n", kind)
		pred, err := Predict(v.paths.ModelDir, kind, table, v.log1p, v.policy)
		if err != nil {
			return nil, err
		}

		pvaPath, residPath := PlotFiles(v.paths.PlotDir, kind)
		if err := plotting.PredictedVsActual(pred.Actual, pred.Predicted, plotting.Labels{
			Title: kind + ": Predicted vs Actual",
			X:     "Actual anxiety prevalence (%)",
			Y:     "Predicted anxiety prevalence (%)",
		}, pvaPath); err != nil {
			return nil, err
		}
		if err := plotting.Histogram(pred.Residuals, plotting.DefaultBins, plotting.Labels{
			Title: kind + ": Residual Distribution",
			X:     "Residual (actual - predicted)",
			Y:     "Count",
		}, residPath); err != nil {
			return nil, err
		}
		files = append(files, pvaPath, residPath)
		fmt.Fprintf(v.out, "Saved plots: %s, %s\n", pvaPath, residPath)
	}

	v.logger.Info("model plots rendered",
		zap.String("scaler", string(v.policy)),
		zap.Int("files", len(files)),
		zap.Duration("took", time.Since(start)))
	return files, nil
}
