package profiling

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"lumen/adapters/tabular"
	domainDataset "lumen/domain/dataset"
	"lumen/internal/config"
	"lumen/internal/dataset"
	"lumen/internal/plotting"
	"lumen/internal/report"
)

// Output file names written by the EDA stage
const (
	HistAnxietyFile  = "hist_anxiety.png"
	HistLightFile    = "hist_light.png"
	ScatterFile      = "scatter_light_vs_anxiety.png"
	CorrelationFile  = "correlation_matrix.png"
	TopAnxietyFile   = "top10_anxiety.csv"
	TopLightFile     = "top10_light.csv"
	SummaryReportKey = "eda_summary"
)

// TopCount is the number of rows in each top-N export
const TopCount = 10

// EDAResult lists what the stage computed and wrote
type EDAResult struct {
	Rows        int
	Summaries   []ColumnSummary
	Correlation *Correlation
	Files       []string
	Duration    time.Duration
}

// DataProfiler runs the exploratory analysis stage over the modeling table
type DataProfiler struct {
	paths  config.PathConfig
	out    io.Writer
	logger *zap.Logger
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler(cfg *config.Config, out io.Writer, logger *zap.Logger) *DataProfiler {
	return &DataProfiler{paths: cfg.Paths, out: out, logger: logger}
}

// Run computes statistics, renders every plot, exports the top-N tables and writes the
// summary report. Every output has a fixed name and is overwritten on rerun.
func (dp *DataProfiler) Run() (*EDAResult, error) {
	start := time.Now()
	df, err := dataset.LoadModelingFrame(dp.paths.ModelTable, dp.logger)
	if err != nil {
		return nil, err
	}
	result := &EDAResult{Rows: df.Nrow()}
	fmt.Fprintf(dp.out, "Loaded modeling table with %d rows.\n", df.Nrow())

	if result.Summaries, err = DescribeFrame(df); err != nil {
		return nil, err
	}
	fmt.Fprintln(dp.out, "Summary statistics:")
	dp.printSummaries(result.Summaries)

	if result.Correlation, err = CorrelationMatrix(df); err != nil {
		return nil, err
	}
	fmt.Fprintln(dp.out, "Correlation matrix:")
	dp.printCorrelation(result.Correlation)
	if len(result.Correlation.Dropped) > 0 {
		dp.logger.Info("constant columns left out of correlation", zap.Strings("columns", result.Correlation.Dropped))
	}

	if err := dp.renderPlots(df, result); err != nil {
		return nil, err
	}
	if err := dp.exportTop(df, result); err != nil {
		return nil, err
	}
	if err := dp.writeSummary(result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	dp.logger.Info("exploratory analysis complete",
		zap.Int("rows", result.Rows),
		zap.Int("files", len(result.Files)),
		zap.Duration("took", result.Duration))
	return result, nil
}

func (dp *DataProfiler) renderPlots(df dataframe.DataFrame, result *EDAResult) error {
	prevalence := df.Col(domainDataset.ColPrevalence).Float()
	light := df.Col(domainDataset.ColLightIntensity).Float()

	plots := []struct {
		file   string
		render func(path string) error
	}{
		{HistAnxietyFile, func(path string) error {
			return plotting.Histogram(prevalence, plotting.DefaultBins, plotting.Labels{
				Title: "Distribution of Anxiety Prevalence", X: "Anxiety prevalence (%)", Y: "Count",
			}, path)
		}},
		{HistLightFile, func(path string) error {
			return plotting.LogHistogram(light, plotting.DefaultBins, plotting.Labels{
				Title: "Distribution of Light Intensity", X: "Light intensity (log scale)", Y: "Count",
			}, path)
		}},
		{ScatterFile, func(path string) error {
			return plotting.LogScatter(light, prevalence, plotting.Labels{
				Title: "Light Intensity vs Anxiety Prevalence", X: "Light intensity (log scale)", Y: "Anxiety prevalence (%)",
			}, path)
		}},
		{CorrelationFile, func(path string) error {
			return plotting.Heatmap(result.Correlation.Names, result.Correlation.At, plotting.Labels{
				Title: "Correlation Matrix",
			}, path)
		}},
	}

	for _, p := range plots {
		path := filepath.Join(dp.paths.PlotDir, p.file)
		if err := p.render(path); err != nil {
			return err
		}
		result.Files = append(result.Files, path)
		fmt.Fprintf(dp.out, "Saved plot: %s\n", path)
	}
	return nil
}

func (dp *DataProfiler) exportTop(df dataframe.DataFrame, result *EDAResult) error {
	exports := []struct {
		column string
		file   string
	}{
		{domainDataset.ColPrevalence, TopAnxietyFile},
		{domainDataset.ColLightIntensity, TopLightFile},
	}
	for _, e := range exports {
		top, err := TopN(df, e.column, TopCount)
		if err != nil {
			return err
		}
		path := filepath.Join(dp.paths.PlotDir, e.file)
		if err := tabular.Write(path, top); err != nil {
			return err
		}
		result.Files = append(result.Files, path)
		fmt.Fprintf(dp.out, "Saved top %d by %s: %s\n", top.Nrow(), e.column, path)
	}
	return nil
}

func (dp *DataProfiler) writeSummary(result *EDAResult) error {
	doc := report.New("Exploratory Data Analysis").
		Paragraph("Modeling table: `%s` (%d rows).", dp.paths.ModelTable, result.Rows).
		Heading("Summary statistics")

	rows := make([][]string, len(result.Summaries))
	for i, s := range result.Summaries {
		rows[i] = s.Row(formatStat)
	}
	doc.Table(SummaryHeader, rows)

	doc.Heading("Correlation")
	doc.Table(correlationHeader(result.Correlation), correlationRows(result.Correlation))
	if len(result.Correlation.Dropped) > 0 {
		doc.Paragraph("Constant columns left out: %v.", result.Correlation.Dropped)
	}

	doc.Heading("Figures")
	for _, path := range result.Files {
		if filepath.Ext(path) != ".png" {
			continue
		}
		rel, err := filepath.Rel(dp.paths.ReportDir, path)
		if err != nil {
			rel = path
		}
		doc.Image(filepath.Base(path), rel)
	}

	mdPath, htmlPath, err := doc.Save(dp.paths.ReportDir, SummaryReportKey)
	if err != nil {
		return err
	}
	result.Files = append(result.Files, mdPath, htmlPath)
	fmt.Fprintf(dp.out, "Saved summary report: %s\n", htmlPath)
	return nil
}

func (dp *DataProfiler) printSummaries(summaries []ColumnSummary) {
	table := tablewriter.NewWriter(dp.out)
	table.SetHeader(SummaryHeader)
	for _, s := range summaries {
		table.Append(s.Row(formatStat))
	}
	table.Render()
}

func (dp *DataProfiler) printCorrelation(c *Correlation) {
	table := tablewriter.NewWriter(dp.out)
	table.SetHeader(correlationHeader(c))
	for _, row := range correlationRows(c) {
		table.Append(row)
	}
	table.Render()
}

func correlationHeader(c *Correlation) []string {
	return append([]string{""}, c.Names...)
}

func correlationRows(c *Correlation) [][]string {
	rows := make([][]string, len(c.Names))
	for i, name := range c.Names {
		row := []string{name}
		for j := range c.Names {
			row = append(row, strconv.FormatFloat(c.At(i, j), 'f', 3, 64))
		}
		rows[i] = row
	}
	return rows
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
