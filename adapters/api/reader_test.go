package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/errors"
)

func newTestSource(url, format string) *SeriesSource {
	source := DefaultSeriesSource(url + "/{code}")
	source.Format = format
	source.Delay = 0
	source.Timeout = 2 * time.Second
	return source
}

func TestSeriesReader_FetchCSV(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("iso,year,month,nlsum\nAFG,2018,1,9\nAFG,2019,1,10\nAFG,2019,2,14\nAFG,2019,3,\n"))
	}))
	defer server.Close()

	data, err := NewSeriesReader(newTestSource(server.URL, "csv")).Fetch(context.Background(), "AFG")
	require.NoError(t, err)

	assert.Equal(t, "/AFG", gotPath)
	assert.Equal(t, "AFG", data.Code)
	assert.Equal(t, []Observation{{2018, 9}, {2019, 10}, {2019, 14}}, data.Observations)
	assert.Equal(t, http.StatusOK, data.Metadata.StatusCode)
	assert.Equal(t, "text/csv", data.Metadata.ContentType)
}

func TestSeriesReader_FetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"rows":[{"year":2019,"nlsum":3.5},{"year":"2020","nlsum":"4"},{"year":2019}]}}`))
	}))
	defer server.Close()

	source := newTestSource(server.URL, "json")
	source.DataPath = "data.rows"
	data, err := NewSeriesReader(source).Fetch(context.Background(), "BRA")
	require.NoError(t, err)
	assert.Equal(t, []Observation{{2019, 3.5}, {2020, 4}}, data.Observations)
}

func TestSeriesReader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		status  int
		body    string
		code    string
		pathArg string
	}{
		{"http error", "csv", http.StatusNotFound, "missing", errors.CodeExternalService, ""},
		{"missing column", "csv", http.StatusOK, "iso,year\nAFG,2019\n", errors.CodeSchemaError, ""},
		{"invalid json", "json", http.StatusOK, "{not json", errors.CodeInvalidInput, ""},
		{"not an array", "json", http.StatusOK, `{"data":1}`, errors.CodeInvalidInput, "data"},
		{"json fields absent", "json", http.StatusOK, `[{"a":1}]`, errors.CodeSchemaError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			source := newTestSource(server.URL, tt.format)
			source.DataPath = tt.pathArg
			_, err := NewSeriesReader(source).Fetch(context.Background(), "AFG")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestPacer_WaitsBetweenCalls(t *testing.T) {
	p := NewPacer(30 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "first call must not wait")

	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPacer_Cancelled(t *testing.T) {
	p := NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}

func TestSeriesSource_Validate(t *testing.T) {
	valid := DefaultSeriesSource("https://example.org/{code}.csv")
	assert.NoError(t, valid.Validate())

	noPlaceholder := DefaultSeriesSource("https://example.org/data.csv")
	err := noPlaceholder.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "URLTemplate"))

	badFormat := DefaultSeriesSource("https://example.org/{code}")
	badFormat.Format = "xml"
	assert.Error(t, badFormat.Validate())
}
