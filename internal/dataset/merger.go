// Package dataset joins the normalized anxiety and nightlight tables into the modeling table
// and loads that table for the analysis stages.
//
// The join is always inner: countries present in only one input are dropped, and the
// coverage loss is reported through the row counts in MergeResult.
package dataset

import (
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"lumen/adapters/tabular"
	domainDataset "lumen/domain/dataset"
	"lumen/internal/errors"
)

// MergeConfig holds the inputs, key and output of a merge
type MergeConfig struct {
	LeftPath   string
	RightPath  string
	OutputPath string
	Key        string
}

// MergeResult contains the result of a merge operation
type MergeResult struct {
	LeftRows      int           `json:"left_rows"`
	RightRows     int           `json:"right_rows"`
	RowCount      int           `json:"row_count"`
	ColumnCount   int           `json:"column_count"`
	DroppedLeft   int           `json:"dropped_left"`
	DroppedRight  int           `json:"dropped_right"`
	OutputPath    string        `json:"output_path"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Merger handles the modeling-table join
type Merger struct {
	out    io.Writer
	logger *zap.Logger
}

// NewMerger creates a new dataset merger
func NewMerger(out io.Writer, logger *zap.Logger) *Merger {
	return &Merger{out: out, logger: logger}
}

// MergeFiles loads both inputs, inner-joins them on the key and writes the result
func (m *Merger) MergeFiles(cfg MergeConfig) (*MergeResult, error) {
	start := time.Now()
	if cfg.Key == "" {
		cfg.Key = domainDataset.ColCountryCode
	}

	fmt.Fprintln(m.out, "Loading datasets...")
	types := map[string]series.Type{cfg.Key: series.String}
	left, err := tabular.NewDataReader(cfg.LeftPath, m.logger).WithTypes(types).Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load left input")
	}
	right, err := tabular.NewDataReader(cfg.RightPath, m.logger).WithTypes(types).Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load right input")
	}

	fmt.Fprintf(m.out, "Merging datasets on '%s'...\n", cfg.Key)
	merged, err := InnerJoin(left, right, cfg.Key)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{
		LeftRows:     left.Nrow(),
		RightRows:    right.Nrow(),
		RowCount:     merged.Nrow(),
		ColumnCount:  merged.Ncol(),
		DroppedLeft:  left.Nrow() - merged.Nrow(),
		DroppedRight: right.Nrow() - merged.Nrow(),
		OutputPath:   cfg.OutputPath,
	}
	fmt.Fprintf(m.out, "Merged dataset contains %d rows (%d and %d input rows).\n",
		result.RowCount, result.LeftRows, result.RightRows)

	if err := tabular.Write(cfg.OutputPath, merged); err != nil {
		return nil, err
	}
	fmt.Fprintf(m.out, "Saved merged dataset to: %s\n", cfg.OutputPath)

	result.ExecutionTime = time.Since(start)
	m.logger.Info("datasets merged",
		zap.Int("left_rows", result.LeftRows),
		zap.Int("right_rows", result.RightRows),
		zap.Int("rows", result.RowCount),
		zap.Duration("took", result.ExecutionTime))
	return result, nil
}

// InnerJoin joins right onto left by key. Columns keep the left order followed by the
// right's non-key columns.
func InnerJoin(left, right dataframe.DataFrame, key string) (dataframe.DataFrame, error) {
	if err := tabular.RequireColumns(left, key); err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "left input")
	}
	if err := tabular.RequireColumns(right, key); err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "right input")
	}

	joined := left.InnerJoin(right, key)
	if joined.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(joined.Err, "failed to join on %s", key)
	}

	order := append([]string{}, left.Names()...)
	for _, name := range right.Names() {
		if name != key {
			order = append(order, name)
		}
	}
	ordered := joined.Select(order)
	if ordered.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(ordered.Err, "failed to order joined columns")
	}
	return ordered, nil
}

// modelingTypes pins the modeling table column types
var modelingTypes = map[string]series.Type{
	domainDataset.ColCountry:        series.String,
	domainDataset.ColCountryCode:    series.String,
	domainDataset.ColYear:           series.Int,
	domainDataset.ColPrevalence:     series.Float,
	domainDataset.ColLightIntensity: series.Float,
}

// LoadModelingFrame reads the modeling table and checks the columns every consumer needs.
// A table without rows, as written after a join with no common codes, is EMPTY_DATASET.
func LoadModelingFrame(path string, logger *zap.Logger) (dataframe.DataFrame, error) {
	df, err := tabular.NewDataReader(path, logger).WithTypes(modelingTypes).Read()
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "failed to load modeling table")
	}
	if err := tabular.RequireColumns(df, domainDataset.ColCountryCode, domainDataset.ColPrevalence, domainDataset.ColLightIntensity); err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.EmptyDataset(fmt.Sprintf("modeling table %s has no rows", path))
	}
	return df, nil
}

// LoadModelingTable reads the modeling table into column slices
func LoadModelingTable(path string, logger *zap.Logger) (*domainDataset.ModelingTable, error) {
	df, err := LoadModelingFrame(path, logger)
	if err != nil {
		return nil, err
	}
	return TableFromFrame(df), nil
}

// TableFromFrame converts a modeling dataframe into column slices.
// Country is optional; a missing column leaves Countries empty.
func TableFromFrame(df dataframe.DataFrame) *domainDataset.ModelingTable {
	table := &domainDataset.ModelingTable{
		Codes:          df.Col(domainDataset.ColCountryCode).Records(),
		Prevalence:     df.Col(domainDataset.ColPrevalence).Float(),
		LightIntensity: df.Col(domainDataset.ColLightIntensity).Float(),
	}
	for _, name := range df.Names() {
		if name == domainDataset.ColCountry {
			table.Countries = df.Col(domainDataset.ColCountry).Records()
			break
		}
	}
	return table
}
