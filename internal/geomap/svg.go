package geomap

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/plot/palette/brewer"
)

// Built-in map geometry: an equirectangular world with a legend strip below it
const (
	mapWidth      = 1000
	mapHeight     = 500
	legendHeight  = 60
	markerRadius  = 5
	paletteName   = "YlOrRd"
	paletteColors = 9
	graticuleStep = 30
)

type point struct {
	Lat, Lon float64
}

var centroids = mustLoadCentroids()

// mustLoadCentroids reads the embedded table of approximate country centroids keyed by
// ISO-3 code
func mustLoadCentroids() map[string]point {
	raw, err := embeddedFiles.ReadFile("data/centroids.csv")
	if err != nil {
		panic(err)
	}
	df := dataframe.ReadCSV(bytes.NewReader(raw), dataframe.WithTypes(map[string]series.Type{
		"Country_Code": series.String,
		"Latitude":     series.Float,
		"Longitude":    series.Float,
	}))
	if df.Err != nil {
		panic(df.Err)
	}

	codes := df.Col("Country_Code").Records()
	lats := df.Col("Latitude").Float()
	lons := df.Col("Longitude").Float()
	out := make(map[string]point, len(codes))
	for i, code := range codes {
		out[code] = point{Lat: lats[i], Lon: lons[i]}
	}
	return out
}

// project maps a coordinate onto the equirectangular canvas
func project(p point) (x, y float64) {
	return (p.Lon + 180) / 360 * mapWidth, (90 - p.Lat) / 180 * mapHeight
}

type svgLine struct {
	X1, Y1, X2, Y2 float64
}

type svgMarker struct {
	Code    string
	X, Y, R float64
	Fill    string
	Tip     string
}

type legendStop struct {
	X, Width float64
	Fill     string
	Label    string
}

type svgDocument struct {
	Title         string
	ColorbarTitle string
	Width         int
	Height        int
	ViewHeight    int
	LegendY       float64
	LegendBarY    float64
	LegendLabelY  float64
	Graticule     []svgLine
	Markers       []svgMarker
	Legend        []legendStop
	Unplaced      []string
}

// colorScale buckets values linearly between the observed extremes
type colorScale struct {
	min, max float64
	colors   []string
}

func newColorScale(values []float64) (*colorScale, error) {
	p, err := brewer.GetPalette(brewer.TypeSequential, paletteName, paletteColors)
	if err != nil {
		return nil, err
	}
	s := &colorScale{min: math.Inf(1), max: math.Inf(-1)}
	for _, c := range p.Colors() {
		s.colors = append(s.colors, hexColor(c))
	}
	for _, v := range values {
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	if len(values) == 0 {
		s.min, s.max = 0, 0
	}
	return s, nil
}

func (s *colorScale) bucket(v float64) int {
	n := len(s.colors)
	if s.max <= s.min {
		return n / 2
	}
	i := int((v - s.min) / (s.max - s.min) * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (s *colorScale) fill(v float64) string { return s.colors[s.bucket(v)] }

// lower returns the value at which bucket i starts
func (s *colorScale) lower(i int) float64 {
	return s.min + (s.max-s.min)*float64(i)/float64(len(s.colors))
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

// svgLayout places every country with a known centroid on the canvas
func (c *Choropleth) svgLayout() (*svgDocument, error) {
	scale, err := newColorScale(c.Values)
	if err != nil {
		return nil, err
	}

	doc := &svgDocument{
		Title:         c.Title,
		ColorbarTitle: c.ColorbarTitle,
		Width:         mapWidth,
		Height:        mapHeight,
		ViewHeight:    mapHeight + legendHeight,
		LegendY:       mapHeight + 16,
		LegendBarY:    mapHeight + 22,
		LegendLabelY:  mapHeight + 48,
	}
	for lon := -180; lon <= 180; lon += graticuleStep {
		x, _ := project(point{Lon: float64(lon)})
		doc.Graticule = append(doc.Graticule, svgLine{X1: x, Y1: 0, X2: x, Y2: mapHeight})
	}
	for lat := -90; lat <= 90; lat += graticuleStep {
		_, y := project(point{Lat: float64(lat)})
		doc.Graticule = append(doc.Graticule, svgLine{X1: 0, Y1: y, X2: mapWidth, Y2: y})
	}

	for i, code := range c.Locations {
		p, ok := centroids[code]
		if !ok {
			doc.Unplaced = append(doc.Unplaced, code)
			continue
		}
		x, y := project(p)
		doc.Markers = append(doc.Markers, svgMarker{
			Code: code,
			X:    x,
			Y:    y,
			R:    markerRadius,
			Fill: scale.fill(c.Values[i]),
			Tip:  strings.ReplaceAll(c.Hover[i], "<br>", "\n"),
		})
	}

	width := float64(mapWidth-20) / float64(len(scale.colors))
	for i, fill := range scale.colors {
		doc.Legend = append(doc.Legend, legendStop{
			X:     10 + float64(i)*width,
			Width: width,
			Fill:  fill,
			Label: fmt.Sprintf("%.2f", scale.lower(i)),
		})
	}
	return doc, nil
}
