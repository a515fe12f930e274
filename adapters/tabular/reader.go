// Package tabular loads and stores the pipeline's tables as gota dataframes.
package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"lumen/internal/errors"
)

// DataReader handles reading CSV and Excel files into dataframes
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	types    map[string]series.Type
	logger   *zap.Logger
}

// NewDataReader creates a reader; the file type follows the extension and defaults to csv.
// A nil logger discards the read timings.
func NewDataReader(filePath string, logger *zap.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger}
}

// WithTypes pins column types instead of relying on detection
func (r *DataReader) WithTypes(types map[string]series.Type) *DataReader {
	r.types = types
	return r
}

// Read loads the file. A missing file yields a NOT_FOUND error.
func (r *DataReader) Read() (dataframe.DataFrame, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return dataframe.DataFrame{}, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	var (
		df  dataframe.DataFrame
		err error
	)
	start := time.Now()
	switch r.fileType {
	case "xlsx":
		df, err = r.readExcel()
	default:
		df, err = r.readCSV()
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "failed to parse %s", r.filePath)
	}

	r.logger.Debug("table read",
		zap.String("path", r.filePath),
		zap.String("type", r.fileType),
		zap.Int("rows", df.Nrow()),
		zap.Int("columns", df.Ncol()),
		zap.Duration("took", time.Since(start)))
	return df, nil
}

func (r *DataReader) options() []dataframe.LoadOption {
	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	}
	if len(r.types) > 0 {
		opts = append(opts, dataframe.WithTypes(r.types))
	}
	return opts
}

func (r *DataReader) readCSV() (dataframe.DataFrame, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "failed to parse %s", r.filePath))
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, errors.InvalidInput(fmt.Sprintf("CSV file %s has no header row", r.filePath))
	}
	return r.load(records), nil
}

// load builds the dataframe from header plus rows. A header without rows yields a
// zero-row frame; gota refuses to load one.
func (r *DataReader) load(records [][]string) dataframe.DataFrame {
	if len(records) > 1 {
		return dataframe.LoadRecords(records, r.options()...)
	}
	cols := make([]series.Series, len(records[0]))
	for i, name := range records[0] {
		t, ok := r.types[name]
		if !ok {
			t = series.String
		}
		cols[i] = series.New([]string{}, t, name)
	}
	return dataframe.New(cols...)
}

// readExcel reads the first sheet of the workbook
func (r *DataReader) readExcel() (dataframe.DataFrame, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataframe.DataFrame{}, errors.InvalidInput(fmt.Sprintf("workbook %s has no sheets", r.filePath))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "failed to read sheet %s", sheets[0])
	}
	if len(rows) < 1 {
		return dataframe.DataFrame{}, errors.InvalidInput("Excel file must have at least a header row")
	}

	return r.load(padRows(rows)), nil
}

// padRows makes every row as wide as the header; excelize trims trailing empty cells
func padRows(rows [][]string) [][]string {
	width := len(rows[0])
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) >= width {
			out[i] = row[:width]
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// Write stores a dataframe as CSV, creating parent directories
func Write(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return errors.Wrapf(df.Err, "refusing to write invalid dataframe to %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer file.Close()

	if err := df.WriteCSV(file); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ResolveColumn returns the first accepted name present in the dataframe
func ResolveColumn(df dataframe.DataFrame, role string, accepted ...string) (string, error) {
	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, name := range accepted {
		if present[name] {
			return name, nil
		}
	}
	return "", errors.MissingColumn(role, accepted)
}

// RequireColumns fails with a SCHEMA_ERROR naming the first absent column
func RequireColumns(df dataframe.DataFrame, names ...string) error {
	for _, name := range names {
		if _, err := ResolveColumn(df, name, name); err != nil {
			return err
		}
	}
	return nil
}
