package profiling

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainDataset "lumen/domain/dataset"
	"lumen/internal/errors"
	"lumen/internal/testkit"
)

func TestDescribe(t *testing.T) {
	s, err := Describe("x", []float64{1, 2, 3, 4, 5, math.NaN()})
	require.NoError(t, err)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Median)
	assert.LessOrEqual(t, s.Q25, s.Median)
	assert.GreaterOrEqual(t, s.Q75, s.Median)
	assert.InDelta(t, 0, s.Skewness, 1e-12)
	assert.InDelta(t, -1.2, s.Kurtosis, 1e-12)
	assert.Zero(t, s.Outliers)
}

func TestDescribe_OutliersAndEmpty(t *testing.T) {
	s, err := Describe("x", []float64{1, 1, 2, 2, 2, 3, 3, 100})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Outliers)
	assert.Greater(t, s.Skewness, 0.0)

	_, err = Describe("empty", nil)
	assert.True(t, errors.HasCode(err, errors.CodeEmptyDataset))

	single, err := Describe("one", []float64{7})
	require.NoError(t, err)
	assert.Zero(t, single.Std)
}

func sampleFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"A", "B", "C", "D"}, series.String, domainDataset.ColCountryCode),
		series.New([]int{2019, 2019, 2019, 2019}, series.Int, domainDataset.ColYear),
		series.New([]float64{1, 2, 3, 4}, series.Float, domainDataset.ColPrevalence),
		series.New([]float64{10, 20, 30, 40}, series.Float, domainDataset.ColLightIntensity),
	)
}

func TestCorrelationMatrix(t *testing.T) {
	c, err := CorrelationMatrix(sampleFrame())
	require.NoError(t, err)

	assert.Equal(t, []string{domainDataset.ColPrevalence, domainDataset.ColLightIntensity}, c.Names)
	assert.Equal(t, []string{domainDataset.ColYear}, c.Dropped)
	assert.InDelta(t, 1, c.At(0, 0), 1e-12)
	assert.InDelta(t, 1, c.At(0, 1), 1e-12)
	assert.Equal(t, c.At(0, 1), c.At(1, 0))
}

func TestCorrelationMatrix_TooFewColumns(t *testing.T) {
	df := dataframe.New(series.New([]float64{1, 2, 3}, series.Float, "x"))
	_, err := CorrelationMatrix(df)
	assert.True(t, errors.HasCode(err, errors.CodeEmptyDataset))
}

func TestTopN(t *testing.T) {
	top, err := TopN(sampleFrame(), domainDataset.ColLightIntensity, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C"}, top.Col(domainDataset.ColCountryCode).Records())

	all, err := TopN(sampleFrame(), domainDataset.ColPrevalence, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Nrow())
	assert.Equal(t, []float64{4, 3, 2, 1}, all.Col(domainDataset.ColPrevalence).Float())

	_, err = TopN(sampleFrame(), "missing", 2)
	assert.True(t, errors.HasCode(err, errors.CodeSchemaError))
}

func TestDataProfiler_RunWritesEveryOutput(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	require.NoError(t, testkit.WriteModelingTable(cfg.Paths.ModelTable, testkit.ModelingRows(30, 4)))

	var out bytes.Buffer
	result, err := NewDataProfiler(cfg, &out, zap.NewNop()).Run()
	require.NoError(t, err)
	assert.Equal(t, 30, result.Rows)

	for _, name := range []string{HistAnxietyFile, HistLightFile, ScatterFile, CorrelationFile, TopAnxietyFile, TopLightFile} {
		assert.FileExists(t, filepath.Join(cfg.Paths.PlotDir, name))
	}
	assert.FileExists(t, filepath.Join(cfg.Paths.ReportDir, SummaryReportKey+".md"))
	assert.FileExists(t, filepath.Join(cfg.Paths.ReportDir, SummaryReportKey+".html"))

	f, err := os.Open(filepath.Join(cfg.Paths.PlotDir, TopAnxietyFile))
	require.NoError(t, err)
	defer f.Close()
	top := dataframe.ReadCSV(f)
	require.NoError(t, top.Err)
	assert.Equal(t, TopCount, top.Nrow())

	values := top.Col(domainDataset.ColPrevalence).Float()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i-1], values[i])
	}
	assert.Contains(t, out.String(), "Correlation matrix:")
}

func TestDataProfiler_TopExportsAreIdempotent(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	require.NoError(t, testkit.WriteModelingTable(cfg.Paths.ModelTable, testkit.ModelingRows(25, 6)))
	profiler := NewDataProfiler(cfg, &bytes.Buffer{}, zap.NewNop())

	_, err := profiler.Run()
	require.NoError(t, err)
	first := readFiles(t, cfg.Paths.PlotDir, TopAnxietyFile, TopLightFile)

	_, err = profiler.Run()
	require.NoError(t, err)
	second := readFiles(t, cfg.Paths.PlotDir, TopAnxietyFile, TopLightFile)

	assert.Equal(t, first, second)
}

func TestDataProfiler_MissingTable(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	_, err := NewDataProfiler(cfg, &bytes.Buffer{}, zap.NewNop()).Run()
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
	assert.NoDirExists(t, cfg.Paths.PlotDir)
}

func readFiles(t *testing.T, dir string, names ...string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		out[name] = data
	}
	return out
}
