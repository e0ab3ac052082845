package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yemble/pointcast/internal/forecast"
)

var testDefaults = forecast.Settings{
	DefaultLocation: forecast.Location{Lat: 40.4414, Lng: -105.7551},
	IntervalHours:   3,
	Units:           forecast.UnitsImperial,
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	assert := assert.New(t)

	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	st, err := store.Load(testDefaults)
	assert.NoError(err)
	assert.Equal(testDefaults, st)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	assert := assert.New(t)

	store := NewStore(filepath.Join(t.TempDir(), "nested", "settings.json"))

	want := forecast.Settings{
		DefaultLocation: forecast.Location{Lat: 51.5072, Lng: -0.1276},
		IntervalHours:   2,
		Units:           forecast.UnitsMetric,
	}
	assert.NoError(store.Save(want))

	got, err := store.Load(testDefaults)
	assert.NoError(err)
	assert.Equal(want, got)
}

func TestLastWriteWins(t *testing.T) {
	assert := assert.New(t)

	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))

	first := testDefaults
	first.IntervalHours = 1
	assert.NoError(store.Save(first))

	second := testDefaults
	second.IntervalHours = 2
	assert.NoError(store.Save(second))

	got, err := store.Load(testDefaults)
	assert.NoError(err)
	assert.Equal(2, got.IntervalHours)
}

func TestLoadSanitizesBadValues(t *testing.T) {
	assert := assert.New(t)

	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	bad := forecast.Settings{
		DefaultLocation: forecast.Location{Lat: 500, Lng: 500},
		IntervalHours:   9,
		Units:           "nautical",
	}
	assert.NoError(store.Save(bad))

	got, err := store.Load(testDefaults)
	assert.NoError(err)
	assert.Equal(testDefaults, got)
}
