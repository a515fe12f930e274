package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"lumen/adapters/tabular"
	"lumen/domain/dataset"
	"lumen/internal/config"
)

// Country is one synthetic country
type Country struct {
	Name string
	Code string
}

// Countries is the fixed roster used by the generator
var Countries = []Country{
	{"Afghanistan", "AFG"}, {"Argentina", "ARG"}, {"Australia", "AUS"}, {"Austria", "AUT"},
	{"Bangladesh", "BGD"}, {"Belgium", "BEL"}, {"Brazil", "BRA"}, {"Canada", "CAN"},
	{"Chad", "TCD"}, {"Chile", "CHL"}, {"China", "CHN"}, {"Colombia", "COL"},
	{"Denmark", "DNK"}, {"Egypt", "EGY"}, {"Ethiopia", "ETH"}, {"Finland", "FIN"},
	{"France", "FRA"}, {"Germany", "DEU"}, {"Ghana", "GHA"}, {"Greece", "GRC"},
	{"India", "IND"}, {"Indonesia", "IDN"}, {"Iran", "IRN"}, {"Ireland", "IRL"},
	{"Italy", "ITA"}, {"Japan", "JPN"}, {"Kenya", "KEN"}, {"Mexico", "MEX"},
	{"Morocco", "MAR"}, {"Netherlands", "NLD"}, {"Nigeria", "NGA"}, {"Norway", "NOR"},
	{"Pakistan", "PAK"}, {"Peru", "PER"}, {"Poland", "POL"}, {"Portugal", "PRT"},
	{"South Africa", "ZAF"}, {"Spain", "ESP"}, {"Sweden", "SWE"}, {"Turkey", "TUR"},
	{"United Kingdom", "GBR"}, {"United States", "USA"}, {"Vietnam", "VNM"}, {"Zambia", "ZMB"},
}

// aggregates have no country code and must be dropped by the preprocessor
var aggregates = []string{"World", "High-income countries", "Sub-Saharan Africa"}

// RawDataConfig configures the synthetic raw dataset generator
type RawDataConfig struct {
	FirstYear      int     `json:"first_year"`
	LastYear       int     `json:"last_year"`
	MonthsPerYear  int     `json:"months_per_year"`
	LightCoverage  float64 `json:"light_coverage"` // share of countries with light data
	NoiseStdDev    float64 `json:"noise_std_dev"`
	Seed           int64   `json:"seed"`
	PrevalenceName string  `json:"prevalence_name"`
}

// DefaultRawDataConfig returns defaults spanning the reference year
func DefaultRawDataConfig() RawDataConfig {
	return RawDataConfig{
		FirstYear:      2017,
		LastYear:       2020,
		MonthsPerYear:  12,
		LightCoverage:  0.9,
		NoiseStdDev:    0.4,
		Seed:           42,
		PrevalenceName: config.DefaultPrevalenceAliases[0],
	}
}

// RawDataGenerator produces raw anxiety and nightlight tables shaped like the public sources.
// Prevalence rises with log light intensity plus noise so the models have signal to fit.
type RawDataGenerator struct {
	config RawDataConfig
	rng    *rand.Rand
	light  map[string]float64
}

// NewRawDataGenerator creates a new generator
func NewRawDataGenerator(cfg RawDataConfig) *RawDataGenerator {
	g := &RawDataGenerator{
		config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		light:  make(map[string]float64, len(Countries)),
	}
	for _, c := range Countries {
		g.light[c.Code] = math.Exp(2 + g.rng.Float64()*8)
	}
	return g
}

// Anxiety returns the raw anxiety table: Entity, Code, Year and the prevalence column
func (g *RawDataGenerator) Anxiety() dataframe.DataFrame {
	var entities, codes []string
	var years []int
	var prevalence []float64

	for year := g.config.FirstYear; year <= g.config.LastYear; year++ {
		for _, c := range Countries {
			base := 2 + 0.3*math.Log1p(g.light[c.Code])
			drift := 0.02 * float64(year-g.config.FirstYear)
			entities = append(entities, c.Name)
			codes = append(codes, c.Code)
			years = append(years, year)
			prevalence = append(prevalence, round(base+drift+g.rng.NormFloat64()*g.config.NoiseStdDev, 4))
		}
		for _, name := range aggregates {
			entities = append(entities, name)
			codes = append(codes, "")
			years = append(years, year)
			prevalence = append(prevalence, round(3.5+g.rng.NormFloat64()*0.1, 4))
		}
	}

	return dataframe.New(
		series.New(entities, series.String, dataset.RawColEntity),
		series.New(codes, series.String, dataset.RawColCode),
		series.New(years, series.Int, dataset.RawColYear),
		series.New(prevalence, series.Float, g.config.PrevalenceName),
	)
}

// Nightlight returns the raw monthly light table with iso, year, month and nlsum columns
func (g *RawDataGenerator) Nightlight() dataframe.DataFrame {
	var isos []string
	var years, months []int
	var sums []float64

	for _, c := range Countries {
		if g.rng.Float64() > g.config.LightCoverage {
			continue
		}
		for year := g.config.FirstYear; year <= g.config.LastYear; year++ {
			for m := 1; m <= g.config.MonthsPerYear; m++ {
				isos = append(isos, c.Code)
				years = append(years, year)
				months = append(months, m)
				sums = append(sums, round(g.light[c.Code]*(0.8+0.4*g.rng.Float64()), 3))
			}
		}
	}

	return dataframe.New(
		series.New(isos, series.String, "iso"),
		series.New(years, series.Int, "year"),
		series.New(months, series.Int, "month"),
		series.New(sums, series.Float, "nlsum"),
	)
}

// WriteRaw writes both raw tables to the configured raw paths
func (g *RawDataGenerator) WriteRaw(paths config.PathConfig) error {
	if err := os.MkdirAll(paths.RawDir, 0755); err != nil {
		return fmt.Errorf("failed to create raw directory: %w", err)
	}
	if err := tabular.Write(paths.RawAnxiety, g.Anxiety()); err != nil {
		return err
	}
	return tabular.Write(paths.RawNightlight, g.Nightlight())
}

// ConfigIn returns the default configuration rooted at dir
func ConfigIn(dir string) *config.Config {
	cfg := config.Default()
	p := &cfg.Paths
	p.RawDir = filepath.Join(dir, "data", "raw")
	p.RawAnxiety = filepath.Join(p.RawDir, "anxiety-disorders-prevalence.csv")
	p.RawNightlight = filepath.Join(p.RawDir, "nightlights.csv")
	p.AnxietyOutput = filepath.Join(dir, "data", "processed", "anxiety.csv")
	p.NightlightOutput = filepath.Join(dir, "data", "processed", "nightlight.csv")
	p.ModelTable = filepath.Join(dir, "data", "processed", "df_model.csv")
	p.ModelDir = filepath.Join(dir, "models")
	p.PlotDir = filepath.Join(dir, "outputs", "plots")
	p.ReportDir = filepath.Join(dir, "outputs", "reports")
	cfg.Training.ForestTrees = 10
	cfg.Training.BoostRounds = 10
	return cfg
}

// WriteModelingTable writes a modeling table with the given rows to path
func WriteModelingTable(path string, rows []dataset.ModelingRecord) error {
	countries := make([]string, len(rows))
	codes := make([]string, len(rows))
	years := make([]int, len(rows))
	prevalence := make([]float64, len(rows))
	light := make([]float64, len(rows))
	for i, r := range rows {
		countries[i] = r.Country
		codes[i] = r.CountryCode
		years[i] = r.Year
		prevalence[i] = r.Prevalence
		light[i] = r.LightIntensity
	}
	return tabular.Write(path, dataframe.New(
		series.New(countries, series.String, dataset.ColCountry),
		series.New(codes, series.String, dataset.ColCountryCode),
		series.New(years, series.Int, dataset.ColYear),
		series.New(prevalence, series.Float, dataset.ColPrevalence),
		series.New(light, series.Float, dataset.ColLightIntensity),
	))
}

// ModelingRows generates n modeling rows with a log-linear relationship
func ModelingRows(n int, seed int64) []dataset.ModelingRecord {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]dataset.ModelingRecord, n)
	for i := range rows {
		c := Countries[i%len(Countries)]
		light := math.Exp(1 + rng.Float64()*8)
		rows[i] = dataset.ModelingRecord{
			Country:        c.Name,
			CountryCode:    fmt.Sprintf("%s%d", c.Code[:2], i),
			Year:           2019,
			Prevalence:     round(2+0.3*math.Log1p(light)+rng.NormFloat64()*0.2, 4),
			LightIntensity: round(light, 3),
		}
	}
	return rows
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
