// Package plotting renders the pipeline's static PNG charts with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"lumen/internal/errors"
)

// DefaultBins is the histogram bin count used across the pipeline
const DefaultBins = 30

var (
	barColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	kdeColor  = color.RGBA{R: 25, G: 25, B: 112, A: 255}
	dotColor  = color.RGBA{R: 139, G: 0, B: 0, A: 255}
	lineColor = color.RGBA{R: 220, G: 20, B: 60, A: 255}
)

// Size of every saved figure
var (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// Labels holds the title and axis labels of a figure
type Labels struct {
	Title string
	X     string
	Y     string
}

func newPlot(l Labels) *plot.Plot {
	p := plot.New()
	p.Title.Text = l.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = l.X
	p.Y.Label.Text = l.Y
	p.Add(plotter.NewGrid())
	return p
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create plot directory for %s", path)
	}
	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}

// Histogram renders a count histogram with a Gaussian KDE overlay scaled to counts
func Histogram(values []float64, bins int, l Labels, path string) error {
	data := finite(values)
	if len(data) == 0 {
		return errors.EmptyDataset(fmt.Sprintf("no values to plot for %s", l.Title))
	}

	p := newPlot(l)
	hist, err := plotter.NewHist(plotter.Values(data), bins)
	if err != nil {
		return errors.Wrap(err, "failed to build histogram")
	}
	hist.FillColor = barColor
	hist.LineStyle.Width = vg.Points(0.5)
	p.Add(hist)

	if kde := densityCurve(data, hist.Width*float64(len(data))); kde != nil {
		p.Add(kde)
	}
	return save(p, path)
}

// LogHistogram renders a histogram with logarithmic bins on a log-scaled x axis.
// Non-positive values cannot be placed on the axis and are ignored.
func LogHistogram(values []float64, bins int, l Labels, path string) error {
	var logs []float64
	for _, v := range finite(values) {
		if v > 0 {
			logs = append(logs, math.Log10(v))
		}
	}
	if len(logs) == 0 {
		return errors.EmptyDataset(fmt.Sprintf("no positive values to plot for %s", l.Title))
	}

	p := newPlot(l)
	hist, err := plotter.NewHist(plotter.Values(logs), bins)
	if err != nil {
		return errors.Wrap(err, "failed to build histogram")
	}
	for i := range hist.Bins {
		hist.Bins[i].Min = math.Pow(10, hist.Bins[i].Min)
		hist.Bins[i].Max = math.Pow(10, hist.Bins[i].Max)
	}
	hist.FillColor = barColor
	hist.LineStyle.Width = vg.Points(0.5)
	p.Add(hist)

	if kde := logDensityCurve(logs, hist.Width*float64(len(logs))); kde != nil {
		p.Add(kde)
	}
	setLogX(p)
	return save(p, path)
}

// LogScatter renders y against x on a log-scaled x axis, ignoring points with x <= 0
func LogScatter(x, y []float64, l Labels, path string) error {
	if len(x) != len(y) {
		return errors.InvalidInput("scatter axes differ in length")
	}
	var pts plotter.XYs
	for i := range x {
		if x[i] > 0 && !math.IsNaN(y[i]) && !math.IsInf(x[i], 0) {
			pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
		}
	}
	if len(pts) == 0 {
		return errors.EmptyDataset(fmt.Sprintf("no positive values to plot for %s", l.Title))
	}

	p := newPlot(l)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter")
	}
	scatter.GlyphStyle.Color = dotColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	setLogX(p)
	return save(p, path)
}

// PredictedVsActual renders predicted against actual values with a dashed 45° reference line
func PredictedVsActual(actual, predicted []float64, l Labels, path string) error {
	if len(actual) != len(predicted) {
		return errors.InvalidInput("actual and predicted differ in length")
	}
	if len(actual) == 0 {
		return errors.EmptyDataset(fmt.Sprintf("no values to plot for %s", l.Title))
	}

	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i] = plotter.XY{X: actual[i], Y: predicted[i]}
		lo = math.Min(lo, math.Min(actual[i], predicted[i]))
		hi = math.Max(hi, math.Max(actual[i], predicted[i]))
	}

	p := newPlot(l)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter")
	}
	scatter.GlyphStyle.Color = barColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "failed to build reference line")
	}
	ref.Color = lineColor
	ref.Width = vg.Points(1.5)
	ref.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	p.Add(ref)

	return save(p, path)
}

// Heatmap renders a square matrix with per-cell value labels on a diverging blue-red scale
// spanning [-1, 1]
func Heatmap(names []string, value func(i, j int) float64, l Labels, path string) error {
	n := len(names)
	if n == 0 {
		return errors.EmptyDataset("no columns to plot in heatmap")
	}

	grid := matrixGrid{n: n, value: value}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	p := newPlot(l)
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	var cells plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.2f", grid.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(cells)
	if err != nil {
		return errors.Wrap(err, "failed to build heatmap labels")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)

	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	for i, name := range names {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Tick.Label.Font.Size = vg.Points(8)
	p.Y.Tick.Label.Font.Size = vg.Points(8)
	return save(p, path)
}

// matrixGrid lays a square matrix out with row 0 at the top
type matrixGrid struct {
	n     int
	value func(i, j int) float64
}

func (g matrixGrid) Dims() (c, r int)   { return g.n, g.n }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }
func (g matrixGrid) Z(c, r int) float64 { return g.value(g.n-1-r, c) }

func setLogX(p *plot.Plot) {
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
}

// densityCurve returns a Gaussian KDE scaled by the given factor, or nil when the data has
// no spread
func densityCurve(data []float64, scale float64) *plotter.Function {
	bw := bandwidth(data)
	if bw == 0 {
		return nil
	}
	kernel := distuv.Normal{Mu: 0, Sigma: bw}
	f := plotter.NewFunction(func(x float64) float64 {
		sum := 0.0
		for _, v := range data {
			sum += kernel.Prob(x - v)
		}
		return scale * sum / float64(len(data))
	})
	f.Color = kdeColor
	f.Width = vg.Points(1.5)
	f.Samples = 200
	return f
}

// logDensityCurve is densityCurve estimated in log10 space and evaluated on a linear x
func logDensityCurve(logs []float64, scale float64) *plotter.Function {
	inner := densityCurve(logs, scale)
	if inner == nil {
		return nil
	}
	f := plotter.NewFunction(func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		return inner.F(math.Log10(x))
	})
	f.LineStyle = inner.LineStyle
	f.Samples = 400
	return f
}

// bandwidth is Scott's rule
func bandwidth(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sd := stat.StdDev(data, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return sd * math.Pow(float64(len(data)), -0.2)
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
