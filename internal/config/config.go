package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lumen/internal/errors"
)

// Config represents the complete pipeline configuration
type Config struct {
	Paths      PathConfig
	Dataset    DatasetConfig
	Nightlight NightlightConfig
	Training   TrainingConfig
	Inference  InferenceConfig
	Pipeline   PipelineConfig
	Logging    LoggingConfig
}

// PathConfig holds every file system location a stage reads or writes
type PathConfig struct {
	RawDir           string
	RawAnxiety       string
	RawNightlight    string
	AnxietyOutput    string
	NightlightOutput string
	ModelTable       string
	ModelDir         string
	PlotDir          string
	ReportDir        string
}

// DatasetConfig holds the reference year and the accepted prevalence column names
type DatasetConfig struct {
	ReferenceYear     int
	PrevalenceAliases []string
}

// NightlightSource selects how the nightlight preprocessor obtains its data
type NightlightSource string

const (
	SourceLocal  NightlightSource = "local"
	SourceRemote NightlightSource = "remote"
)

// NightlightConfig holds settings for both nightlight source strategies
type NightlightConfig struct {
	Source       NightlightSource
	YearColumn   string
	CodeColumn   string
	ValueColumn  string
	RemoteURL    string // must contain {code}
	RemoteFormat string // csv or json
	DataPath     string // gjson path to the record array for json payloads
	FetchDelay   time.Duration
	FetchTimeout time.Duration
}

// TrainingConfig holds split and model hyperparameters
type TrainingConfig struct {
	Seed              int64
	TestFraction      float64
	Log1p             bool
	ForestTrees       int
	BoostRounds       int
	BoostLearningRate float64
	BoostMaxDepth     int
}

// ScalerPolicy decides which standardizer the inference stages use
type ScalerPolicy string

const (
	// ScalerRefit fits a fresh scaler on the full modeling table
	ScalerRefit ScalerPolicy = "refit"
	// ScalerPersisted reuses the scaler stored with the trained model
	ScalerPersisted ScalerPolicy = "persisted"
)

// InferenceConfig holds settings for the visualizer and map renderer. PlotlyBundle names
// a local plotly.min.js to inline into the map documents; PlotlyCDN lets them load Plotly
// from its CDN instead. With neither, maps use the built-in SVG renderer.
type InferenceConfig struct {
	Scaler       ScalerPolicy
	MapModel     string
	PlotlyBundle string
	PlotlyCDN    bool
}

// FailurePolicy decides what the orchestrator does after a failed stage
type FailurePolicy string

const (
	PolicyContinue FailurePolicy = "continue"
	PolicyHalt     FailurePolicy = "halt"
)

// PipelineConfig holds orchestrator settings
type PipelineConfig struct {
	FailurePolicy FailurePolicy
	CleanOutputs  bool
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// DefaultPrevalenceAliases lists the prevalence column names seen across dataset revisions
var DefaultPrevalenceAliases = []string{
	"Anxiety disorders (share of population) - Sex: Both - Age: Age-standardized",
	"Prevalence - Anxiety disorders - Sex: Both - Age: Age-standardized (Percent)",
	"Anxiety disorders (share of population) - Sex: Both - Age: All ages",
	"Anxiety_Prevalence_%",
}

const defaultReferenceYear = 2019

// Default returns the configuration for the standard data/, models/ and outputs/ layout
func Default() *Config {
	return defaultsFor(defaultReferenceYear)
}

func defaultsFor(year int) *Config {
	aliases := make([]string, len(DefaultPrevalenceAliases))
	copy(aliases, DefaultPrevalenceAliases)

	return &Config{
		Paths: PathConfig{
			RawDir:           filepath.Join("data", "raw"),
			RawAnxiety:       filepath.Join("data", "raw", "anxiety-disorders-prevalence.csv"),
			RawNightlight:    filepath.Join("data", "raw", "VIIRS-nighttime-lights-2013m1to2024m5-level0.csv"),
			AnxietyOutput:    filepath.Join("data", "processed", fmt.Sprintf("anxiety_prevalence_%d.csv", year)),
			NightlightOutput: filepath.Join("data", "processed", fmt.Sprintf("nightlight_%d.csv", year)),
			ModelTable:       filepath.Join("data", "processed", "df_model.csv"),
			ModelDir:         "models",
			PlotDir:          filepath.Join("outputs", "plots"),
			ReportDir:        filepath.Join("outputs", "reports"),
		},
		Dataset: DatasetConfig{
			ReferenceYear:     year,
			PrevalenceAliases: aliases,
		},
		Nightlight: NightlightConfig{
			Source:       SourceLocal,
			YearColumn:   "year",
			CodeColumn:   "iso",
			ValueColumn:  "nlsum",
			RemoteFormat: "csv",
			FetchDelay:   500 * time.Millisecond,
			FetchTimeout: 15 * time.Second,
		},
		Training: TrainingConfig{
			Seed:              42,
			TestFraction:      0.2,
			Log1p:             true,
			ForestTrees:       100,
			BoostRounds:       100,
			BoostLearningRate: 0.3,
			BoostMaxDepth:     6,
		},
		Inference: InferenceConfig{
			Scaler:   ScalerRefit,
			MapModel: "randomforest",
		},
		Pipeline: PipelineConfig{
			FailurePolicy: PolicyContinue,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := defaultsFor(getEnvIntOrDefault("REFERENCE_YEAR", defaultReferenceYear))

	loadPathConfig(&config.Paths)
	loadDatasetConfig(&config.Dataset)
	loadNightlightConfig(&config.Nightlight)
	loadTrainingConfig(&config.Training)
	loadInferenceConfig(&config.Inference)
	loadPipelineConfig(&config.Pipeline)
	loadLoggingConfig(&config.Logging)

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadPathConfig(p *PathConfig) {
	p.RawDir = getEnvOrDefault("RAW_DIR", p.RawDir)
	p.RawAnxiety = getEnvOrDefault("RAW_ANXIETY_PATH", p.RawAnxiety)
	p.RawNightlight = getEnvOrDefault("RAW_NIGHTLIGHT_PATH", p.RawNightlight)
	p.AnxietyOutput = getEnvOrDefault("ANXIETY_OUTPUT_PATH", p.AnxietyOutput)
	p.NightlightOutput = getEnvOrDefault("NIGHTLIGHT_OUTPUT_PATH", p.NightlightOutput)
	p.ModelTable = getEnvOrDefault("MODEL_TABLE_PATH", p.ModelTable)
	p.ModelDir = getEnvOrDefault("MODEL_DIR", p.ModelDir)
	p.PlotDir = getEnvOrDefault("PLOT_DIR", p.PlotDir)
	p.ReportDir = getEnvOrDefault("REPORT_DIR", p.ReportDir)
}

func loadDatasetConfig(d *DatasetConfig) {
	if extra := getEnvListOrDefault("ANXIETY_COLUMN_ALIASES", nil); len(extra) > 0 {
		d.PrevalenceAliases = append(extra, d.PrevalenceAliases...)
	}
}

func loadNightlightConfig(n *NightlightConfig) {
	n.Source = NightlightSource(strings.ToLower(getEnvOrDefault("NIGHTLIGHT_SOURCE", string(n.Source))))
	n.YearColumn = getEnvOrDefault("NIGHTLIGHT_YEAR_COLUMN", n.YearColumn)
	n.CodeColumn = getEnvOrDefault("NIGHTLIGHT_CODE_COLUMN", n.CodeColumn)
	n.ValueColumn = getEnvOrDefault("NIGHTLIGHT_VALUE_COLUMN", n.ValueColumn)
	n.RemoteURL = getEnvOrDefault("NIGHTLIGHT_REMOTE_URL", n.RemoteURL)
	n.RemoteFormat = strings.ToLower(getEnvOrDefault("NIGHTLIGHT_REMOTE_FORMAT", n.RemoteFormat))
	n.DataPath = getEnvOrDefault("NIGHTLIGHT_REMOTE_DATA_PATH", n.DataPath)
	n.FetchDelay = getEnvDurationOrDefault("FETCH_DELAY", n.FetchDelay)
	n.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", n.FetchTimeout)
}

func loadTrainingConfig(t *TrainingConfig) {
	t.Seed = int64(getEnvIntOrDefault("SPLIT_SEED", int(t.Seed)))
	t.TestFraction = getEnvFloatOrDefault("TEST_FRACTION", t.TestFraction)
	t.Log1p = getEnvBoolOrDefault("FEATURE_LOG1P", t.Log1p)
	t.ForestTrees = getEnvIntOrDefault("FOREST_TREES", t.ForestTrees)
	t.BoostRounds = getEnvIntOrDefault("BOOST_ROUNDS", t.BoostRounds)
	t.BoostLearningRate = getEnvFloatOrDefault("BOOST_LEARNING_RATE", t.BoostLearningRate)
	t.BoostMaxDepth = getEnvIntOrDefault("BOOST_MAX_DEPTH", t.BoostMaxDepth)
}

func loadInferenceConfig(i *InferenceConfig) {
	i.Scaler = ScalerPolicy(strings.ToLower(getEnvOrDefault("INFERENCE_SCALER", string(i.Scaler))))
	i.MapModel = strings.ToLower(getEnvOrDefault("MAP_MODEL", i.MapModel))
	i.PlotlyBundle = getEnvOrDefault("MAP_PLOTLY_BUNDLE", i.PlotlyBundle)
	i.PlotlyCDN = getEnvBoolOrDefault("MAP_PLOTLY_CDN", i.PlotlyCDN)
}

func loadPipelineConfig(p *PipelineConfig) {
	p.FailurePolicy = FailurePolicy(strings.ToLower(getEnvOrDefault("FAILURE_POLICY", string(p.FailurePolicy))))
	p.CleanOutputs = getEnvBoolOrDefault("CLEAN_OUTPUTS", p.CleanOutputs)
}

func loadLoggingConfig(l *LoggingConfig) {
	l.Level = getEnvOrDefault("LOG_LEVEL", l.Level)
	l.Format = getEnvOrDefault("LOG_FORMAT", l.Format)
	l.File = getEnvOrDefault("LOG_FILE", l.File)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Dataset.ReferenceYear <= 0 {
		return errors.ConfigInvalid("reference year must be positive")
	}
	if len(c.Dataset.PrevalenceAliases) == 0 {
		return errors.ConfigInvalid("at least one prevalence column alias is required")
	}

	switch c.Nightlight.Source {
	case SourceLocal:
	case SourceRemote:
		if !strings.Contains(c.Nightlight.RemoteURL, "{code}") {
			return errors.ConfigInvalid("NIGHTLIGHT_REMOTE_URL must contain a {code} placeholder")
		}
		if c.Nightlight.RemoteFormat != "csv" && c.Nightlight.RemoteFormat != "json" {
			return errors.ConfigInvalid("NIGHTLIGHT_REMOTE_FORMAT must be csv or json")
		}
		if c.Nightlight.FetchTimeout <= 0 {
			return errors.ConfigInvalid("FETCH_TIMEOUT must be positive")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown nightlight source %q", c.Nightlight.Source))
	}

	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return errors.ConfigInvalid("TEST_FRACTION must be between 0 and 1")
	}
	if c.Training.ForestTrees <= 0 || c.Training.BoostRounds <= 0 {
		return errors.ConfigInvalid("FOREST_TREES and BOOST_ROUNDS must be positive")
	}

	if c.Inference.Scaler != ScalerRefit && c.Inference.Scaler != ScalerPersisted {
		return errors.ConfigInvalid(fmt.Sprintf("unknown scaler policy %q", c.Inference.Scaler))
	}
	if c.Pipeline.FailurePolicy != PolicyContinue && c.Pipeline.FailurePolicy != PolicyHalt {
		return errors.ConfigInvalid(fmt.Sprintf("unknown failure policy %q", c.Pipeline.FailurePolicy))
	}

	return c.validateOutputDirs()
}

// validateOutputDirs rejects output directories the clean step must never empty: the
// working directory, the filesystem root, and any ancestor of the working directory or
// of RAW_DIR
func (c *Config) validateOutputDirs() error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to resolve working directory")
	}
	raw, err := filepath.Abs(c.Paths.RawDir)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve RAW_DIR %s", c.Paths.RawDir)
	}

	for _, dir := range c.OutputDirs() {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve output directory %s", dir)
		}
		switch {
		case abs == filepath.Dir(abs):
			return errors.ConfigInvalid(fmt.Sprintf("output directory %q is the filesystem root", dir))
		case IsWithin(cwd, abs):
			return errors.ConfigInvalid(fmt.Sprintf("output directory %q contains the working directory", dir))
		case IsWithin(raw, abs):
			return errors.ConfigInvalid(fmt.Sprintf("output directory %q contains RAW_DIR %s", dir, c.Paths.RawDir))
		}
	}
	return nil
}

// IsWithin reports whether path equals root or lies below it. Both must be absolute and clean.
func IsWithin(path, root string) bool {
	if path == root {
		return true
	}
	if root == filepath.Dir(root) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// OutputDirs returns the directories the pipeline writes into, raw data excluded
func (c *Config) OutputDirs() []string {
	dirs := []string{
		filepath.Dir(c.Paths.AnxietyOutput),
		filepath.Dir(c.Paths.NightlightOutput),
		filepath.Dir(c.Paths.ModelTable),
		c.Paths.ModelDir,
		c.Paths.PlotDir,
		c.Paths.ReportDir,
	}

	seen := make(map[string]bool, len(dirs))
	unique := make([]string, 0, len(dirs))
	for _, d := range dirs {
		clean := filepath.Clean(d)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		unique = append(unique, clean)
	}
	return unique
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
