package api

import (
	"time"
)

// SeriesSource describes a remote endpoint serving one time series per country
type SeriesSource struct {
	Name        string            `json:"name"`
	URLTemplate string            `json:"url_template"` // {code} is replaced by the ISO-3 code
	Headers     map[string]string `json:"headers,omitempty"`

	// Payload layout
	Format     string `json:"format"`    // "csv" or "json"
	DataPath   string `json:"data_path"` // gjson path to the record array (json only)
	YearField  string `json:"year_field"`
	ValueField string `json:"value_field"`

	// Politeness
	Timeout time.Duration `json:"timeout"`
	Delay   time.Duration `json:"delay"` // fixed pause between consecutive requests
}

// Observation is one (year, value) point of a country series
type Observation struct {
	Year  int
	Value float64
}

// SeriesData is a fetched series with request metadata
type SeriesData struct {
	Code         string
	Observations []Observation
	Metadata     FetchMetadata
}

// FetchMetadata contains request-level details
type FetchMetadata struct {
	URL          string
	StatusCode   int
	ContentType  string
	ResponseTime time.Duration
	FetchedAt    time.Time
}
