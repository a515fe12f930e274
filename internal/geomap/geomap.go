// Package geomap renders interactive world maps as self-contained HTML documents. The
// default document draws an inline SVG and needs no network; a Plotly choropleth is
// produced when a local bundle is configured or the CDN is explicitly allowed.
package geomap

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"lumen/adapters/tabular"
	domainDataset "lumen/domain/dataset"
	"lumen/internal/config"
	"lumen/internal/dataset"
	"lumen/internal/errors"
	"lumen/internal/ml"
	"lumen/internal/visualize"
)

//go:embed templates/*.html data/centroids.csv
var embeddedFiles embed.FS

var templates = template.Must(template.ParseFS(embeddedFiles, "templates/*.html"))

// Output file names under the plot directory
const (
	PredictionMapFile = "final_anxiety_map.html"
	PrevalenceMapFile = "anxiety_map.html"
)

// PlotlyScriptURL is the chart library a CDN-backed document loads
const PlotlyScriptURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// PlotlyScript is the chart library of a Plotly document, either inlined or linked
type PlotlyScript struct {
	Inline template.JS
	URL    string
}

// LoadPlotly resolves the chart library. A bundle path is read and inlined and wins over
// the CDN; with neither set it returns nil and documents use the built-in SVG map.
func LoadPlotly(bundle string, cdn bool) (*PlotlyScript, error) {
	if bundle != "" {
		src, err := os.ReadFile(bundle)
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("plotly bundle %s", bundle))
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read plotly bundle %s", bundle)
		}
		if bytes.Contains(bytes.ToLower(src), []byte("</script")) {
			return nil, errors.InvalidInput(fmt.Sprintf("plotly bundle %s cannot be inlined: it contains a closing script tag", bundle))
		}
		return &PlotlyScript{Inline: template.JS(src)}, nil
	}
	if cdn {
		return &PlotlyScript{URL: PlotlyScriptURL}, nil
	}
	return nil, nil
}

// Choropleth is the data of one map document
type Choropleth struct {
	Title         string
	ColorbarTitle string
	Locations     []string
	Values        []float64
	Hover         []string
	// Plotly switches the document to a Plotly choropleth
	Plotly *PlotlyScript
}

// Add appends one country; rows with a NaN value are skipped
func (c *Choropleth) Add(code string, value float64, hover string) {
	if code == "" || math.IsNaN(value) || math.IsInf(value, 0) {
		return
	}
	c.Locations = append(c.Locations, code)
	c.Values = append(c.Values, value)
	c.Hover = append(c.Hover, hover)
}

// Len returns the number of countries on the map
func (c *Choropleth) Len() int { return len(c.Locations) }

// Unplaced returns the codes the built-in map has no position for
func (c *Choropleth) Unplaced() []string {
	var missing []string
	for _, code := range c.Locations {
		if _, ok := centroids[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing
}

// Render writes the HTML document
func (c *Choropleth) Render(w io.Writer) error {
	if c.Plotly != nil {
		if err := templates.ExecuteTemplate(w, "choropleth.html", c); err != nil {
			return errors.Wrap(err, "failed to render choropleth")
		}
		return nil
	}

	doc, err := c.svgLayout()
	if err != nil {
		return errors.Wrap(err, "failed to lay out map")
	}
	if err := templates.ExecuteTemplate(w, "svgmap.html", doc); err != nil {
		return errors.Wrap(err, "failed to render map")
	}
	return nil
}

// Save renders the document to path, creating parent directories
func (c *Choropleth) Save(path string) error {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create map directory for %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// PredictionMap builds the prevalence map of the modeling table with predicted values and
// residuals in the hover text. The code stands in for a missing country name.
func PredictionMap(table *domainDataset.ModelingTable, pred *visualize.Prediction) *Choropleth {
	c := &Choropleth{
		Title:         fmt.Sprintf("Anxiety Prevalence with %s Predictions", pred.Model),
		ColorbarTitle: "Anxiety prevalence (%)",
	}
	for i, code := range table.Codes {
		name := code
		if i < len(table.Countries) && table.Countries[i] != "" {
			name = table.Countries[i]
		}
		hover := fmt.Sprintf("%s<br>Actual: %.2f%%<br>Predicted: %.2f%%<br>Residual: %.2f",
			name, table.Prevalence[i], pred.Predicted[i], pred.Residuals[i])
		c.Add(code, table.Prevalence[i], hover)
	}
	return c
}

// Renderer runs the map stages
type Renderer struct {
	paths     config.PathConfig
	year      int
	log1p     bool
	inference config.InferenceConfig
	out       io.Writer
	logger    *zap.Logger
}

// NewRenderer creates a renderer from configuration
func NewRenderer(cfg *config.Config, out io.Writer, logger *zap.Logger) *Renderer {
	return &Renderer{
		paths:     cfg.Paths,
		year:      cfg.Dataset.ReferenceYear,
		log1p:     cfg.Training.Log1p,
		inference: cfg.Inference,
		out:       out,
		logger:    logger,
	}
}

// RenderPredictions loads the configured model, predicts every country of the modeling
// table and writes the final map
func (r *Renderer) RenderPredictions() (string, error) {
	start := time.Now()
	kind, err := ml.ResolveKind(r.inference.MapModel)
	if err != nil {
		return "", errors.WithCode(errors.CodeConfigInvalid, err)
	}

	table, err := dataset.LoadModelingTable(r.paths.ModelTable, r.logger)
	if err != nil {
		return "", err
	}
	pred, err := visualize.Predict(r.paths.ModelDir, kind, table, r.log1p, r.inference.Scaler)
	if err != nil {
		return "", err
	}

	path := filepath.Join(r.paths.PlotDir, PredictionMapFile)
	m := PredictionMap(table, pred)
	if err := r.save(m, path); err != nil {
		return "", err
	}
	fmt.Fprintf(r.out, "Saved interactive map (%d countries, model %s): %s\n", m.Len(), kind, path)

	r.logger.Info("prediction map rendered",
		zap.String("model", kind),
		zap.Int("countries", m.Len()),
		zap.String("path", path),
		zap.Duration("took", time.Since(start)))
	return path, nil
}

// RenderPrevalence maps the normalized anxiety file without any model
func (r *Renderer) RenderPrevalence() (string, error) {
	df, err := tabular.NewDataReader(r.paths.AnxietyOutput, r.logger).WithTypes(map[string]series.Type{
		domainDataset.ColCountry:     series.String,
		domainDataset.ColCountryCode: series.String,
		domainDataset.ColPrevalence:  series.Float,
	}).Read()
	if err != nil {
		return "", errors.Wrap(err, "failed to load anxiety data")
	}
	if err := tabular.RequireColumns(df, domainDataset.ColCountry, domainDataset.ColCountryCode, domainDataset.ColPrevalence); err != nil {
		return "", err
	}

	m := &Choropleth{
		Title:         fmt.Sprintf("Anxiety Disorder Prevalence (%d)", r.year),
		ColorbarTitle: "Anxiety prevalence (%)",
	}
	names := df.Col(domainDataset.ColCountry).Records()
	codes := df.Col(domainDataset.ColCountryCode).Records()
	values := df.Col(domainDataset.ColPrevalence).Float()
	for i, code := range codes {
		m.Add(code, values[i], fmt.Sprintf("%s<br>Prevalence: %.2f%%", names[i], values[i]))
	}

	path := filepath.Join(r.paths.PlotDir, PrevalenceMapFile)
	if err := r.save(m, path); err != nil {
		return "", err
	}
	fmt.Fprintf(r.out, "Saved interactive map (%d countries): %s\n", m.Len(), path)
	r.logger.Info("prevalence map rendered", zap.Int("countries", m.Len()), zap.String("path", path))
	return path, nil
}

func (r *Renderer) save(m *Choropleth, path string) error {
	script, err := LoadPlotly(r.inference.PlotlyBundle, r.inference.PlotlyCDN)
	if err != nil {
		return err
	}
	m.Plotly = script
	if script == nil {
		if missing := m.Unplaced(); len(missing) > 0 {
			r.logger.Warn("countries without a map position",
				zap.Int("count", len(missing)),
				zap.Strings("codes", missing))
		}
	}
	return m.Save(path)
}
