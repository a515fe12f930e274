// Package preprocess normalizes the raw anxiety and nightlight tables to the reference year.
package preprocess

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"lumen/adapters/tabular"
	"lumen/domain/dataset"
	"lumen/internal/config"
	"lumen/internal/errors"
)

// AnxietyPreprocessor filters the raw prevalence table to one year and renames its columns
type AnxietyPreprocessor struct {
	rawPath    string
	outputPath string
	year       int
	aliases    []string
	out        io.Writer
	logger     *zap.Logger
}

// NewAnxietyPreprocessor creates the preprocessor from configuration
func NewAnxietyPreprocessor(cfg *config.Config, out io.Writer, logger *zap.Logger) *AnxietyPreprocessor {
	return &AnxietyPreprocessor{
		rawPath:    cfg.Paths.RawAnxiety,
		outputPath: cfg.Paths.AnxietyOutput,
		year:       cfg.Dataset.ReferenceYear,
		aliases:    cfg.Dataset.PrevalenceAliases,
		out:        out,
		logger:     logger,
	}
}

// Run reads the raw file, normalizes it and writes the output file.
// Missing input and schema errors abort before anything is written.
func (p *AnxietyPreprocessor) Run() (dataframe.DataFrame, error) {
	raw, err := tabular.NewDataReader(p.rawPath, p.logger).WithTypes(map[string]series.Type{
		dataset.RawColEntity: series.String,
		dataset.RawColCode:   series.String,
		dataset.RawColYear:   series.Int,
	}).Read()
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrap(err, "failed to load raw anxiety data")
	}

	fmt.Fprintln(p.out, "Available columns in dataset:")
	fmt.Fprintf(p.out, "  %s\n", strings.Join(raw.Names(), ", "))

	clean, err := NormalizeAnxiety(raw, p.year, p.aliases)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	fmt.Fprintf(p.out, "Filtered to %d rows for year %d.\n", clean.Nrow(), p.year)

	if err := tabular.Write(p.outputPath, clean); err != nil {
		return dataframe.DataFrame{}, err
	}
	fmt.Fprintf(p.out, "Processed data saved to: %s\n", p.outputPath)

	p.logger.Info("anxiety data normalized",
		zap.String("input", p.rawPath),
		zap.String("output", p.outputPath),
		zap.Int("rows", clean.Nrow()))
	return clean, nil
}

// NormalizeAnxiety keeps rows of the reference year with a country code and
// returns the columns Country, Country_Code, Year, Anxiety_Prevalence_%.
// Duplicate codes keep their first row.
func NormalizeAnxiety(raw dataframe.DataFrame, year int, aliases []string) (dataframe.DataFrame, error) {
	if err := tabular.RequireColumns(raw, dataset.RawColEntity, dataset.RawColCode, dataset.RawColYear); err != nil {
		return dataframe.DataFrame{}, err
	}
	prevalenceCol, err := tabular.ResolveColumn(raw, "anxiety prevalence", aliases...)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	keep := rowsForYear(raw.Col(dataset.RawColYear).Float(), raw.Col(dataset.RawColCode).Records(), year)
	if len(keep) == 0 {
		return emptyAnxietyFrame(), nil
	}

	clean := raw.Subset(keep).
		Select([]string{dataset.RawColEntity, dataset.RawColCode, dataset.RawColYear, prevalenceCol}).
		Rename(dataset.ColCountry, dataset.RawColEntity).
		Rename(dataset.ColCountryCode, dataset.RawColCode)
	if prevalenceCol != dataset.ColPrevalence {
		clean = clean.Rename(dataset.ColPrevalence, prevalenceCol)
	}
	if clean.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(clean.Err, "failed to reshape anxiety table")
	}

	return clean.Select(dataset.AnxietyColumns), nil
}

// rowsForYear returns indexes of rows in the given year whose code is present and first seen
func rowsForYear(years []float64, codes []string, year int) []int {
	seen := make(map[string]bool, len(codes))
	keep := make([]int, 0, len(codes))
	for i, code := range codes {
		if i >= len(years) || years[i] != float64(year) {
			continue
		}
		code = strings.TrimSpace(code)
		if code == "" || code == "NaN" || seen[code] {
			continue
		}
		seen[code] = true
		keep = append(keep, i)
	}
	return keep
}

func emptyAnxietyFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{}, series.String, dataset.ColCountry),
		series.New([]string{}, series.String, dataset.ColCountryCode),
		series.New([]int{}, series.Int, dataset.ColYear),
		series.New([]float64{}, series.Float, dataset.ColPrevalence),
	)
}
