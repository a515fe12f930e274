package api

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSeriesSource returns sensible defaults for a per-country CSV endpoint
func DefaultSeriesSource(urlTemplate string) *SeriesSource {
	return &SeriesSource{
		Name:        "nightlight",
		URLTemplate: urlTemplate,
		Format:      "csv",
		YearField:   "year",
		ValueField:  "nlsum",
		Timeout:     15 * time.Second,
		Delay:       500 * time.Millisecond,
	}
}

// Validate checks if the source configuration is usable
func (s *SeriesSource) Validate() error {
	if !strings.Contains(s.URLTemplate, "{code}") {
		return &ValidationError{Field: "URLTemplate", Message: "must contain {code}"}
	}

	if s.Format != "csv" && s.Format != "json" {
		return &ValidationError{Field: "Format", Message: "must be csv or json"}
	}

	if s.YearField == "" || s.ValueField == "" {
		return &ValidationError{Field: "YearField/ValueField", Message: "cannot be empty"}
	}

	if s.Timeout <= 0 {
		return &ValidationError{Field: "Timeout", Message: "must be positive"}
	}

	if s.Delay < 0 {
		return &ValidationError{Field: "Delay", Message: "cannot be negative"}
	}

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}
