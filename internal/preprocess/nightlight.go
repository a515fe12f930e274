package preprocess

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"lumen/adapters/api"
	"lumen/adapters/tabular"
	"lumen/domain/dataset"
	"lumen/internal/config"
	"lumen/internal/errors"
)

// SeriesFetcher fetches one country's light series
type SeriesFetcher interface {
	Fetch(ctx context.Context, code string) (*api.SeriesData, error)
}

// NightlightPreprocessor produces one mean light intensity per country for the reference year
type NightlightPreprocessor struct {
	cfg     config.NightlightConfig
	paths   config.PathConfig
	year    int
	fetcher SeriesFetcher
	invalid error
	out     io.Writer
	logger  *zap.Logger
}

// NewNightlightPreprocessor creates the preprocessor. The remote fetcher is built from
// configuration when the source is remote.
func NewNightlightPreprocessor(cfg *config.Config, out io.Writer, logger *zap.Logger) *NightlightPreprocessor {
	p := &NightlightPreprocessor{
		cfg:    cfg.Nightlight,
		paths:  cfg.Paths,
		year:   cfg.Dataset.ReferenceYear,
		out:    out,
		logger: logger,
	}
	if cfg.Nightlight.Source == config.SourceRemote {
		source := api.DefaultSeriesSource(cfg.Nightlight.RemoteURL)
		source.Format = cfg.Nightlight.RemoteFormat
		source.DataPath = cfg.Nightlight.DataPath
		source.YearField = cfg.Nightlight.YearColumn
		source.ValueField = cfg.Nightlight.ValueColumn
		source.Timeout = cfg.Nightlight.FetchTimeout
		source.Delay = cfg.Nightlight.FetchDelay
		p.invalid = source.Validate()
		p.fetcher = api.NewSeriesReader(source)
	}
	return p
}

// WithFetcher replaces the remote fetcher
func (p *NightlightPreprocessor) WithFetcher(f SeriesFetcher) *NightlightPreprocessor {
	p.fetcher = f
	p.invalid = nil
	return p
}

// Run collects records with the configured strategy and writes the output file
func (p *NightlightPreprocessor) Run(ctx context.Context) ([]dataset.NightlightRecord, error) {
	var (
		records []dataset.NightlightRecord
		err     error
	)
	switch p.cfg.Source {
	case config.SourceRemote:
		records, err = p.collectRemote(ctx)
	default:
		records, err = p.collectLocal()
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(p.out, "Saving processed file to disk...")
	if err := tabular.Write(p.paths.NightlightOutput, NightlightFrame(records)); err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "Finished. %d countries saved to: %s\n", len(records), p.paths.NightlightOutput)

	p.logger.Info("nightlight data aggregated",
		zap.String("source", string(p.cfg.Source)),
		zap.String("output", p.paths.NightlightOutput),
		zap.Int("countries", len(records)))
	return records, nil
}

// collectLocal aggregates the bulk raw file
func (p *NightlightPreprocessor) collectLocal() ([]dataset.NightlightRecord, error) {
	fmt.Fprintln(p.out, "Loading nightlight CSV...")
	raw, err := tabular.NewDataReader(p.paths.RawNightlight, p.logger).WithTypes(map[string]series.Type{
		p.cfg.CodeColumn: series.String,
	}).Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load raw nightlight data")
	}

	fmt.Fprintf(p.out, "Filtering for year %d and averaging %s per country...\n", p.year, p.cfg.ValueColumn)
	return AggregateNightlight(raw, p.cfg.YearColumn, p.cfg.CodeColumn, p.cfg.ValueColumn, p.year)
}

// collectRemote fetches one series per country listed in the anxiety output.
// Countries with failed requests, missing columns or no data for the year are skipped.
func (p *NightlightPreprocessor) collectRemote(ctx context.Context) ([]dataset.NightlightRecord, error) {
	if p.invalid != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, p.invalid)
	}
	if p.fetcher == nil {
		return nil, errors.ConfigInvalid("remote nightlight source has no fetcher")
	}

	anxiety, err := tabular.NewDataReader(p.paths.AnxietyOutput, p.logger).WithTypes(map[string]series.Type{
		dataset.ColCountryCode: series.String,
	}).Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load country codes from anxiety data")
	}
	if err := tabular.RequireColumns(anxiety, dataset.ColCountryCode); err != nil {
		return nil, err
	}

	codes := anxiety.Col(dataset.ColCountryCode).Records()
	records := make([]dataset.NightlightRecord, 0, len(codes))
	skipped := 0
	for i, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}

		fmt.Fprintf(p.out, "[%d/%d] Fetching %s...\n", i+1, len(codes), code)
		data, err := p.fetcher.Fetch(ctx, code)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skipped++
			p.logger.Warn("skipping country", zap.String("code", code), zap.Error(err))
			continue
		}

		mean, ok := yearMean(data.Observations, p.year)
		if !ok {
			skipped++
			p.logger.Warn("no observations for reference year", zap.String("code", code), zap.Int("year", p.year))
			continue
		}
		records = append(records, dataset.NightlightRecord{CountryCode: code, LightIntensity: mean})
	}

	sortRecords(records)
	fmt.Fprintf(p.out, "Fetched %d countries, skipped %d.\n", len(records), skipped)
	return records, nil
}

// AggregateNightlight filters the raw table to the year and averages the value column per code
func AggregateNightlight(raw dataframe.DataFrame, yearCol, codeCol, valueCol string, year int) ([]dataset.NightlightRecord, error) {
	if err := tabular.RequireColumns(raw, yearCol, codeCol, valueCol); err != nil {
		return nil, err
	}

	years := raw.Col(yearCol).Float()
	codes := raw.Col(codeCol).Records()
	values := raw.Col(valueCol).Float()

	groups := make(map[string][]float64)
	for i := range codes {
		if years[i] != float64(year) || math.IsNaN(values[i]) {
			continue
		}
		code := strings.TrimSpace(codes[i])
		if code == "" || code == "NaN" {
			continue
		}
		groups[code] = append(groups[code], values[i])
	}

	records := make([]dataset.NightlightRecord, 0, len(groups))
	for code, vals := range groups {
		mean, err := stats.Mean(vals)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to average %s for %s", valueCol, code)
		}
		records = append(records, dataset.NightlightRecord{CountryCode: code, LightIntensity: mean})
	}
	sortRecords(records)
	return records, nil
}

// NightlightFrame converts records to the normalized two-column dataframe
func NightlightFrame(records []dataset.NightlightRecord) dataframe.DataFrame {
	codes := make([]string, len(records))
	values := make([]float64, len(records))
	for i, r := range records {
		codes[i] = r.CountryCode
		values[i] = r.LightIntensity
	}
	return dataframe.New(
		series.New(codes, series.String, dataset.ColCountryCode),
		series.New(values, series.Float, dataset.ColLightIntensity),
	)
}

func yearMean(observations []api.Observation, year int) (float64, bool) {
	var vals []float64
	for _, o := range observations {
		if o.Year == year && !math.IsNaN(o.Value) {
			vals = append(vals, o.Value)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	mean, err := stats.Mean(vals)
	if err != nil {
		return 0, false
	}
	return mean, true
}

func sortRecords(records []dataset.NightlightRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CountryCode < records[j].CountryCode
	})
}
