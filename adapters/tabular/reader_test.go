package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lumen/internal/errors"
)

func TestDataReader_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("Code,Year,Value\n001,2019,1.5\nBRA,2019,2\n"), 0644))

	df, err := NewDataReader(path, nil).WithTypes(map[string]series.Type{"Code": series.String}).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "BRA"}, df.Col("Code").Records())
	assert.Equal(t, []float64{1.5, 2}, df.Col("Value").Float())
}

func TestDataReader_Excel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Entity", "Code", "Year", "Prevalence"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Afghanistan", "AFG", 2019, 4.2}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"World"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	df, err := NewDataReader(path, nil).WithTypes(map[string]series.Type{"Code": series.String}).Read()
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, []string{"Entity", "Code", "Year", "Prevalence"}, df.Names())
	assert.Equal(t, "AFG", df.Col("Code").Records()[0])
	assert.InDelta(t, 4.2, df.Col("Prevalence").Float()[0], 1e-9)
}

func TestDataReader_MissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "absent.csv"), nil).Read()
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestWrite_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv")
	df := dataframe.New(series.New([]string{"AFG"}, series.String, "Code"))
	require.NoError(t, Write(path, df))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Code\nAFG\n", string(content))
}

func TestResolveColumn(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"AFG"}, series.String, "Code"),
		series.New([]float64{1}, series.Float, "Prev (v2)"),
	)

	name, err := ResolveColumn(df, "prevalence", "Prev (v3)", "Prev (v2)")
	require.NoError(t, err)
	assert.Equal(t, "Prev (v2)", name)

	_, err = ResolveColumn(df, "prevalence", "Prev (v3)", "Prev (v4)")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSchemaError, errors.GetCode(err))
	assert.Contains(t, err.Error(), "Prev (v3) | Prev (v4)")

	assert.NoError(t, RequireColumns(df, "Code"))
	assert.Error(t, RequireColumns(df, "Code", "Year"))
}

func TestDataReader_HeaderOnlyCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("Country_Code,Light_Intensity\n"), 0644))

	df, err := NewDataReader(path, nil).WithTypes(map[string]series.Type{"Light_Intensity": series.Float}).Read()
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"Country_Code", "Light_Intensity"}, df.Names())
	assert.Equal(t, []series.Type{series.String, series.Float}, df.Types())
}

func TestDataReader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewDataReader(path, nil).Read()
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestDataReader_LogsThroughZap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("Code,Value\nAFG,1\nBRA,2\n"), 0644))

	core, logs := observer.New(zapcore.DebugLevel)
	_, err := NewDataReader(path, zap.New(core)).Read()
	require.NoError(t, err)

	entries := logs.FilterMessage("table read").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, path, fields["path"])
	assert.Equal(t, int64(2), fields["rows"])
	assert.Equal(t, int64(2), fields["columns"])
}
