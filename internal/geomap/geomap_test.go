package geomap

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lumen/adapters/tabular"
	domainDataset "lumen/domain/dataset"
	"lumen/internal/errors"
	"lumen/internal/testkit"
	"lumen/internal/training"
	"lumen/internal/visualize"
)

func TestChoropleth_RenderSelfContained(t *testing.T) {
	c := &Choropleth{Title: "Map </script>", ColorbarTitle: "pct"}
	c.Add("AFG", 4.2, "Afghanistan<br>4.2")
	c.Add("NOR", 8.0, "Norway<br>8.0")
	c.Add("OWID_KOS", 5.0, "Kosovo<br>5.0")
	c.Add("BRA", math.NaN(), "skipped")
	c.Add("", 1, "skipped")

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	page := buf.String()

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"OWID_KOS"}, c.Unplaced())
	assert.NotContains(t, page, "<script", "the default map needs no script")
	assert.NotContains(t, page, "cdn.plot.ly")
	assert.NotContains(t, page, "src=", "no external resources")
	assert.NotContains(t, page, "https://")
	assert.Contains(t, page, "<svg")
	assert.Contains(t, page, `data-code="AFG"`)
	assert.Contains(t, page, `data-code="NOR"`)
	assert.NotContains(t, page, `data-code="OWID_KOS"`)
	assert.Contains(t, page, "Not shown (no map position): OWID_KOS")
	assert.Contains(t, page, "Afghanistan\n4.2", "line breaks become tooltip newlines")
	assert.Regexp(t, `data-code="AFG"[^>]*fill="#ffffcc"`, page, "the minimum takes the lightest bucket")
	assert.Regexp(t, `data-code="NOR"[^>]*fill="#800026"`, page, "the maximum takes the darkest bucket")
	assert.Equal(t, 9, strings.Count(page, "<rect x="), "one legend swatch per bucket")
	assert.NotContains(t, page, "BRA")
	assert.NotContains(t, page, "Map </script>", "title must be escaped")
}

func TestChoropleth_RenderSingleValue(t *testing.T) {
	c := &Choropleth{Title: "One"}
	c.Add("FRA", 3, "France")

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Regexp(t, `data-code="FRA"[^>]*fill="#fd8d3c"`, buf.String(), "a flat scale uses the middle bucket")
}

func TestProject(t *testing.T) {
	x, y := project(point{Lat: 0, Lon: 0})
	assert.InDelta(t, mapWidth/2, x, 1e-9)
	assert.InDelta(t, mapHeight/2, y, 1e-9)

	x, y = project(point{Lat: 90, Lon: -180})
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
}

func TestCentroids_Embedded(t *testing.T) {
	require.Greater(t, len(centroids), 150)
	for code, p := range centroids {
		assert.Len(t, code, 3, code)
		assert.True(t, p.Lat >= -90 && p.Lat <= 90, code)
		assert.True(t, p.Lon >= -180 && p.Lon <= 180, code)
	}
	assert.Contains(t, centroids, "AFG")
	assert.Contains(t, centroids, "USA")
}

func TestChoropleth_RenderPlotlyCDN(t *testing.T) {
	script, err := LoadPlotly("", true)
	require.NoError(t, err)

	c := &Choropleth{Title: "Map", ColorbarTitle: "pct", Plotly: script}
	c.Add("AFG", 4.2, "Afghanistan")

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	page := buf.String()

	assert.Contains(t, page, `<script src="`+PlotlyScriptURL+`"></script>`)
	assert.Contains(t, page, `"AFG"`)
	assert.Contains(t, page, "[4.2]")
	assert.Contains(t, page, `"YlOrRd"`)
	assert.Contains(t, page, `"natural earth"`)
}

func TestLoadPlotly(t *testing.T) {
	dir := t.TempDir()

	script, err := LoadPlotly("", false)
	require.NoError(t, err)
	assert.Nil(t, script, "neither bundle nor CDN keeps the built-in map")

	bundle := filepath.Join(dir, "plotly.min.js")
	require.NoError(t, os.WriteFile(bundle, []byte("window.Plotly={newPlot:function(){}};"), 0644))
	script, err = LoadPlotly(bundle, true)
	require.NoError(t, err)
	assert.Empty(t, script.URL, "a local bundle wins over the CDN")

	c := &Choropleth{Title: "Map", Plotly: script}
	c.Add("AFG", 4.2, "Afghanistan")
	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "<script>window.Plotly={newPlot:function(){}};</script>")
	assert.NotContains(t, buf.String(), "<script src")

	_, err = LoadPlotly(filepath.Join(dir, "missing.js"), false)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	broken := filepath.Join(dir, "broken.js")
	require.NoError(t, os.WriteFile(broken, []byte(`var s = "</SCRIPT>";`), 0644))
	_, err = LoadPlotly(broken, false)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestPredictionMap_HoverFallsBackToCode(t *testing.T) {
	table := &domainDataset.ModelingTable{
		Codes:          []string{"AFG", "BRA"},
		Prevalence:     []float64{4.2, 3.1},
		LightIntensity: []float64{12, 340.5},
	}
	pred := &visualize.Prediction{Model: "RandomForest", Predicted: []float64{4, 3}, Residuals: []float64{0.2, 0.1}}

	m := PredictionMap(table, pred)
	require.Equal(t, 2, m.Len())
	assert.True(t, strings.HasPrefix(m.Hover[0], "AFG<br>"))
	assert.Contains(t, m.Hover[1], "Predicted: 3.00%")
	assert.Contains(t, m.Hover[1], "Residual: 0.10")
	assert.Equal(t, []float64{4.2, 3.1}, m.Values)
}

func TestRenderer_RenderPredictions(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	rows := testkit.ModelingRows(30, 2)
	require.NoError(t, testkit.WriteModelingTable(cfg.Paths.ModelTable, rows))
	_, err := training.NewTrainer(cfg, &bytes.Buffer{}, zap.NewNop()).Run()
	require.NoError(t, err)

	path, err := NewRenderer(cfg, &bytes.Buffer{}, zap.NewNop()).RenderPredictions()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Paths.PlotDir, PredictionMapFile), path)

	page, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(page), rows[0].CountryCode)
	assert.Contains(t, string(page), "RandomForest")
	assert.NotContains(t, string(page), "<script")
}

func TestRenderer_UnknownModel(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	cfg.Inference.MapModel = "svm"
	_, err := NewRenderer(cfg, &bytes.Buffer{}, zap.NewNop()).RenderPredictions()
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestRenderer_MissingModel(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	require.NoError(t, testkit.WriteModelingTable(cfg.Paths.ModelTable, testkit.ModelingRows(10, 2)))
	_, err := NewRenderer(cfg, &bytes.Buffer{}, zap.NewNop()).RenderPredictions()
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestRenderer_RenderPrevalence(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	require.NoError(t, tabular.Write(cfg.Paths.AnxietyOutput, dataframe.New(
		series.New([]string{"Afghanistan", "Brazil"}, series.String, domainDataset.ColCountry),
		series.New([]string{"AFG", "BRA"}, series.String, domainDataset.ColCountryCode),
		series.New([]int{2019, 2019}, series.Int, domainDataset.ColYear),
		series.New([]float64{4.2, 3.1}, series.Float, domainDataset.ColPrevalence),
	)))

	path, err := NewRenderer(cfg, &bytes.Buffer{}, zap.NewNop()).RenderPrevalence()
	require.NoError(t, err)
	page, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(page), `data-code="BRA"`)
	assert.Contains(t, string(page), "(2019)")

	cfg.Inference.PlotlyBundle = filepath.Join(t.TempDir(), "plotly.min.js")
	require.NoError(t, os.WriteFile(cfg.Inference.PlotlyBundle, []byte("var Plotly = {};"), 0644))
	path, err = NewRenderer(cfg, &bytes.Buffer{}, zap.NewNop()).RenderPrevalence()
	require.NoError(t, err)
	page, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<script>var Plotly = {};</script>")
	assert.Contains(t, string(page), `"BRA"`)
}

func TestRenderer_MissingBundle(t *testing.T) {
	cfg := testkit.ConfigIn(t.TempDir())
	cfg.Inference.PlotlyBundle = filepath.Join(t.TempDir(), "plotly.min.js")
	require.NoError(t, tabular.Write(cfg.Paths.AnxietyOutput, dataframe.New(
		series.New([]string{"Afghanistan"}, series.String, domainDataset.ColCountry),
		series.New([]string{"AFG"}, series.String, domainDataset.ColCountryCode),
		series.New([]float64{4.2}, series.Float, domainDataset.ColPrevalence),
	)))

	_, err := NewRenderer(cfg, &bytes.Buffer{}, zap.NewNop()).RenderPrevalence()
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
