// Package training fits the regression models on the modeling table, evaluates them on a
// held-out split and persists the fitted models and the metrics report.
package training

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"lumen/adapters/tabular"
	domainDataset "lumen/domain/dataset"
	"lumen/internal/config"
	"lumen/internal/dataset"
	"lumen/internal/errors"
	"lumen/internal/ml"
)

// ResultsFile is the metrics report written under the report directory
const ResultsFile = "model_results.csv"

// ModelOutcome is the evaluation and artifact of one trained model
type ModelOutcome struct {
	Name         string
	Metrics      ml.Metrics
	ArtifactPath string
}

// Report summarizes a training run
type Report struct {
	Rows        int
	TrainRows   int
	TestRows    int
	Outcomes    []ModelOutcome
	ResultsPath string
	Duration    time.Duration
}

// Records converts the outcomes to evaluation records in training order
func (r *Report) Records() []domainDataset.EvaluationRecord {
	out := make([]domainDataset.EvaluationRecord, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = domainDataset.EvaluationRecord{
			Model: o.Name,
			MAE:   o.Metrics.MAE,
			RMSE:  o.Metrics.RMSE,
			R2:    o.Metrics.R2,
		}
	}
	return out
}

// Trainer runs the training stage
type Trainer struct {
	paths  config.PathConfig
	cfg    config.TrainingConfig
	out    io.Writer
	logger *zap.Logger
}

// NewTrainer creates a trainer bound to the configured paths and hyperparameters
func NewTrainer(cfg *config.Config, out io.Writer, logger *zap.Logger) *Trainer {
	return &Trainer{paths: cfg.Paths, cfg: cfg.Training, out: out, logger: logger}
}

// Models returns fresh, unfitted instances of every trained model in reporting order
func (t *Trainer) Models() []ml.Regressor {
	return []ml.Regressor{
		ml.NewLinearRegression(),
		ml.NewRandomForest(t.cfg.ForestTrees, t.cfg.Seed),
		ml.NewGradientBoosting(t.cfg.BoostRounds, t.cfg.BoostLearningRate, t.cfg.BoostMaxDepth),
	}
}

// Run trains, evaluates and persists every model
func (t *Trainer) Run() (*Report, error) {
	start := time.Now()

	table, err := dataset.LoadModelingTable(t.paths.ModelTable, t.logger)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(t.out, "Loaded modeling table with %d rows.\n", table.Len())

	report, err := t.Train(table)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(t.paths.ReportDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create report directory %s", t.paths.ReportDir)
	}
	report.ResultsPath = filepath.Join(t.paths.ReportDir, ResultsFile)
	if err := tabular.Write(report.ResultsPath, ResultsFrame(report.Records())); err != nil {
		return nil, err
	}

	PrintResults(t.out, report.Records())
	fmt.Fprintf(t.out, "Saved model results to: %s\n", report.ResultsPath)

	report.Duration = time.Since(start)
	t.logger.Info("models trained",
		zap.Int("rows", report.Rows),
		zap.Int("train_rows", report.TrainRows),
		zap.Int("test_rows", report.TestRows),
		zap.String("results", report.ResultsPath),
		zap.Duration("took", report.Duration))
	return report, nil
}

// Train splits the table, fits the scaler on the training rows only and fits every model
// on the same scaled features. Fitted models are saved to the model directory.
func (t *Trainer) Train(table *domainDataset.ModelingTable) (*Report, error) {
	X := ml.FeatureMatrix(table.LightIntensity, t.cfg.Log1p)
	split, err := ml.TrainTestSplit(X, table.Prevalence, t.cfg.TestFraction, t.cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to split modeling table")
	}

	var scaler ml.StandardScaler
	trainX, err := scaler.FitTransform(split.XTrain)
	if err != nil {
		return nil, err
	}
	testX, err := scaler.Transform(split.XTest)
	if err != nil {
		return nil, err
	}

	report := &Report{Rows: table.Len(), TrainRows: len(split.YTrain), TestRows: len(split.YTest)}
	fmt.Fprintf(t.out, "Training on %d rows, evaluating on %d rows.\n", report.TrainRows, report.TestRows)

	for _, model := range t.Models() {
		fmt.Fprintf(t.out, "Training %s...\n", model.Name())
		if err := model.Fit(trainX, split.YTrain); err != nil {
			return nil, errors.Wrapf(err, "failed to fit %s", model.Name())
		}
		predicted, err := model.Predict(testX)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to predict with %s", model.Name())
		}
		metrics, err := ml.Evaluate(split.YTest, predicted)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to evaluate %s", model.Name())
		}

		path, err := ml.SaveModel(t.paths.ModelDir, model, scaler, t.cfg.Log1p)
		if err != nil {
			return nil, err
		}
		t.logger.Debug("model saved", zap.String("model", model.Name()), zap.String("path", path))

		report.Outcomes = append(report.Outcomes, ModelOutcome{
			Name:         model.Name(),
			Metrics:      metrics,
			ArtifactPath: path,
		})
	}
	return report, nil
}

// ResultsFrame builds the metrics report dataframe with columns Model, MAE, RMSE, R2
func ResultsFrame(records []domainDataset.EvaluationRecord) dataframe.DataFrame {
	return dataframe.LoadStructs(records)
}

// PrintResults renders the metrics as a console table
func PrintResults(w io.Writer, records []domainDataset.EvaluationRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model", "MAE", "RMSE", "R2"})
	for _, r := range records {
		table.Append([]string{
			r.Model,
			fmt.Sprintf("%.4f", r.MAE),
			fmt.Sprintf("%.4f", r.RMSE),
			fmt.Sprintf("%.4f", r.R2),
		})
	}
	table.Render()
}
