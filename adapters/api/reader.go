package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/tidwall/gjson"

	"lumen/internal/errors"
)

// SeriesReader fetches per-country series from a remote endpoint, one request at a time
type SeriesReader struct {
	source     *SeriesSource
	httpClient *http.Client
	pacer      *Pacer
}

// NewSeriesReader creates a reader for a series source
func NewSeriesReader(source *SeriesSource) *SeriesReader {
	return &SeriesReader{
		source: source,
		httpClient: &http.Client{
			Timeout: source.Timeout,
		},
		pacer: NewPacer(source.Delay),
	}
}

// Fetch retrieves and parses the series for one country code
func (r *SeriesReader) Fetch(ctx context.Context, code string) (*SeriesData, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	url := r.buildURL(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	for k, v := range r.source.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError(r.source.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(r.source.Name, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ExternalServiceError(r.source.Name,
			fmt.Errorf("%s returned status %d", url, resp.StatusCode))
	}

	var observations []Observation
	switch r.source.Format {
	case "json":
		observations, err = r.parseJSON(body)
	default:
		observations, err = r.parseCSV(body)
	}
	if err != nil {
		return nil, err
	}

	return &SeriesData{
		Code:         code,
		Observations: observations,
		Metadata: FetchMetadata{
			URL:          url,
			StatusCode:   resp.StatusCode,
			ContentType:  resp.Header.Get("Content-Type"),
			ResponseTime: time.Since(start),
			FetchedAt:    start,
		},
	}, nil
}

// buildURL substitutes the country code into the template
func (r *SeriesReader) buildURL(code string) string {
	return strings.ReplaceAll(r.source.URLTemplate, "{code}", code)
}

// parseCSV extracts observations from a CSV payload with a header row
func (r *SeriesReader) parseCSV(body []byte) ([]Observation, error) {
	df := dataframe.ReadCSV(bytes.NewReader(body), dataframe.HasHeader(true), dataframe.DetectTypes(false))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to parse CSV payload")
	}

	for _, field := range []string{r.source.YearField, r.source.ValueField} {
		found := false
		for _, name := range df.Names() {
			if name == field {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.MissingColumn(field, []string{field})
		}
	}

	years := df.Col(r.source.YearField).Float()
	values := df.Col(r.source.ValueField).Float()
	observations := make([]Observation, 0, len(years))
	for i := range years {
		if math.IsNaN(years[i]) || math.IsNaN(values[i]) {
			continue
		}
		observations = append(observations, Observation{Year: int(years[i]), Value: values[i]})
	}
	return observations, nil
}

// parseJSON extracts observations from the record array at DataPath
func (r *SeriesReader) parseJSON(body []byte) ([]Observation, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.InvalidInput("response is not valid JSON")
	}

	dataPath := r.source.DataPath
	if dataPath == "" {
		dataPath = "@this"
	}

	records := gjson.GetBytes(body, dataPath)
	if !records.Exists() || !records.IsArray() {
		return nil, errors.InvalidInput(fmt.Sprintf("data path '%s' is not an array", dataPath))
	}

	var observations []Observation
	sawFields := false
	records.ForEach(func(_, record gjson.Result) bool {
		year := record.Get(r.source.YearField)
		value := record.Get(r.source.ValueField)
		if !year.Exists() || !value.Exists() {
			return true
		}
		sawFields = true
		if value.Type != gjson.Number && value.Type != gjson.String {
			return true
		}
		observations = append(observations, Observation{Year: int(year.Int()), Value: value.Float()})
		return true
	})

	if !sawFields && len(records.Array()) > 0 {
		return nil, errors.MissingColumn(r.source.YearField+"/"+r.source.ValueField,
			[]string{r.source.YearField, r.source.ValueField})
	}
	return observations, nil
}

// Pacer enforces a fixed delay between consecutive calls
type Pacer struct {
	delay time.Duration
	last  time.Time
}

// NewPacer creates a pacer; a zero delay disables pausing
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until the delay since the previous call has elapsed or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	defer func() { p.last = time.Now() }()

	if p.last.IsZero() || p.delay <= 0 {
		return ctx.Err()
	}

	remaining := p.delay - time.Since(p.last)
	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
