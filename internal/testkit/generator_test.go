package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/domain/dataset"
	"lumen/internal/config"
)

func TestRawDataGenerator_Anxiety(t *testing.T) {
	cfg := DefaultRawDataConfig()
	df := NewRawDataGenerator(cfg).Anxiety()

	years := cfg.LastYear - cfg.FirstYear + 1
	assert.Equal(t, years*(len(Countries)+len(aggregates)), df.Nrow())
	assert.Equal(t, []string{dataset.RawColEntity, dataset.RawColCode, dataset.RawColYear, config.DefaultPrevalenceAliases[0]}, df.Names())
}

func TestRawDataGenerator_Deterministic(t *testing.T) {
	a := NewRawDataGenerator(DefaultRawDataConfig())
	b := NewRawDataGenerator(DefaultRawDataConfig())
	assert.Equal(t, a.Nightlight().Records(), b.Nightlight().Records())
	assert.Equal(t, a.Anxiety().Records(), b.Anxiety().Records())
}

func TestRawDataGenerator_WriteRaw(t *testing.T) {
	cfg := ConfigIn(t.TempDir())
	require.NoError(t, NewRawDataGenerator(DefaultRawDataConfig()).WriteRaw(cfg.Paths))
	assert.FileExists(t, cfg.Paths.RawAnxiety)
	assert.FileExists(t, cfg.Paths.RawNightlight)
}

func TestModelingRows(t *testing.T) {
	rows := ModelingRows(50, 3)
	require.Len(t, rows, 50)
	seen := make(map[string]bool)
	for _, r := range rows {
		assert.False(t, seen[r.CountryCode], "codes are unique")
		seen[r.CountryCode] = true
		assert.Positive(t, r.LightIntensity)
	}
}
