package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yemble/pointcast/internal/fetchcache"
	"github.com/yemble/pointcast/internal/forecast"
)

type openMeteoFixture struct {
	times         []time.Time
	temps         []float64
	precip        []*float64
	codes         []int
	windSpeeds    []float64
	windGusts     []*float64
	windDirs      []float64
	tempUnit      string
	windSpeedUnit string
}

func (f openMeteoFixture) body() string {
	unix := make([]int64, len(f.times))
	for i, ts := range f.times {
		unix[i] = ts.Unix()
	}

	payload := map[string]interface{}{
		"hourly": map[string]interface{}{
			"time":                      unix,
			"temperature_2m":            f.temps,
			"precipitation_probability": f.precip,
			"weather_code":              f.codes,
			"wind_speed_10m":            f.windSpeeds,
			"wind_gusts_10m":            f.windGusts,
			"wind_direction_10m":        f.windDirs,
		},
		"hourly_units": map[string]string{
			"temperature_2m": f.tempUnit,
			"wind_speed_10m": f.windSpeedUnit,
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func floatPtr(v float64) *float64 { return &v }

func newOpenMeteoProviderForTest(t *testing.T, hourlyBody string) *OpenMeteoProvider {
	t.Helper()

	tzSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"zoneName": "America/Denver"}`)
	}))
	t.Cleanup(tzSrv.Close)

	hourlySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, hourlyBody)
	}))
	t.Cleanup(hourlySrv.Close)

	return NewOpenMeteoProvider(hourlySrv.Client(), fetchcache.New(), hourlySrv.URL, tzSrv.URL)
}

func TestOpenMeteoResolveMetadata(t *testing.T) {
	assert := assert.New(t)
	p := newOpenMeteoProviderForTest(t, "{}")

	meta, err := p.ResolveMetadata(context.Background(), forecast.Location{Lat: 39.7392, Lng: -104.9903})
	require.NoError(t, err)

	assert.Equal("America/Denver", meta.Timezone)
	assert.Equal("openmeteo", meta.Provider)
	// The hourly locator depends on units, so resolution never fixes it.
	assert.Empty(meta.HourlyURL)
}

func TestOpenMeteoResolveFallsBackToSystemZone(t *testing.T) {
	tzSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer tzSrv.Close()

	p := NewOpenMeteoProvider(tzSrv.Client(), fetchcache.New(), "http://unused.invalid", tzSrv.URL)
	meta, err := p.ResolveMetadata(context.Background(), forecast.Location{Lat: 39.7392, Lng: -104.9903})
	require.NoError(t, err)
	assert.NotEmpty(t, meta.Timezone)
}

func TestOpenMeteoFetchHourly(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2025, time.June, 14, 12, 0, 0, 0, time.UTC)

	fixture := openMeteoFixture{
		times: []time.Time{
			now.Add(-3 * time.Hour), // stale, filtered out
			now.Add(-1 * time.Hour),
			now,
			now.Add(1 * time.Hour),
		},
		temps:         []float64{60, 64, 68, 71},
		precip:        []*float64{floatPtr(10), nil, floatPtr(35), floatPtr(55)},
		codes:         []int{0, 51, 3, 9999},
		windSpeeds:    []float64{5, 8, 12, 18},
		windGusts:     []*float64{nil, floatPtr(14), floatPtr(20), nil},
		windDirs:      []float64{0, 225, 350, 90},
		tempUnit:      "°F",
		windSpeedUnit: "mp/h",
	}

	p := newOpenMeteoProviderForTest(t, fixture.body())
	p.now = func() time.Time { return now }

	series, err := p.FetchHourly(context.Background(), forecast.PointMetadata{
		Location: forecast.Location{Lat: 39.7392, Lng: -104.9903},
		Timezone: "America/Denver",
	}, forecast.UnitsImperial)
	require.NoError(t, err)

	// The row three hours in the past is dropped by the recency filter.
	require.Len(t, series.Records, 3)
	assert.Equal("America/Denver", series.Timezone)

	first := series.Records[0]
	assert.Equal(now.Add(-1*time.Hour), first.Timestamp)
	assert.Equal(64.0, first.Temperature)
	assert.Equal("°F", first.TemperatureUnit)
	assert.Equal(0, first.PrecipProbability) // null reads as zero
	assert.Equal("Light drizzle", first.Description)
	assert.Equal("SW", first.WindDirection) // 225 degrees
	require.NotNil(t, first.WindGust)
	assert.Equal(14.0, *first.WindGust)

	second := series.Records[1]
	assert.Equal(35, second.PrecipProbability)
	assert.Equal("N", second.WindDirection) // 350 wraps around north

	// Unknown weather codes translate to an empty description.
	assert.Empty(series.Records[2].Description)
	assert.Equal("E", series.Records[2].WindDirection)
}

func TestOpenMeteoHourlyLocator(t *testing.T) {
	assert := assert.New(t)
	p := NewOpenMeteoProvider(nil, fetchcache.New(), "https://api.open-meteo.com/v1/forecast", "http://unused.invalid")

	meta := forecast.PointMetadata{
		Location: forecast.Location{Lat: 39.7392, Lng: -104.9903},
		Timezone: "America/Denver",
	}

	imperial := p.hourlyLocator(meta, forecast.UnitsImperial)
	u, err := url.Parse(imperial)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal("39.7392", q.Get("latitude"))
	assert.Equal("-104.9903", q.Get("longitude"))
	assert.Equal("fahrenheit", q.Get("temperature_unit"))
	assert.Equal("mph", q.Get("wind_speed_unit"))
	assert.Equal("unixtime", q.Get("timeformat"))
	assert.Equal("14", q.Get("forecast_days"))
	assert.Equal("America/Denver", q.Get("timezone"))
	assert.Contains(q.Get("hourly"), "temperature_2m")
	assert.Contains(q.Get("hourly"), "wind_gusts_10m")

	metric := p.hourlyLocator(meta, forecast.UnitsMetric)
	mu, err := url.Parse(metric)
	require.NoError(t, err)
	mq := mu.Query()
	assert.Equal("celsius", mq.Get("temperature_unit"))
	assert.Equal("kmh", mq.Get("wind_speed_unit"))

	// Distinct unit systems must cache under distinct locators.
	assert.NotEqual(imperial, metric)
}

// Both adapters normalize to the same record shape: feeding them series that
// cover the same instants must aggregate into identically keyed days with
// matching hour counts.
func TestAdaptersProduceAlignedShape(t *testing.T) {
	tz, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	var instants []time.Time
	for day := 14; day <= 15; day++ {
		for hour := 0; hour < 24; hour++ {
			instants = append(instants, time.Date(2025, time.June, day, hour, 0, 0, 0, tz).UTC())
		}
	}

	// NWS: record-oriented periods.
	var periods []string
	for _, ts := range instants {
		periods = append(periods, fmt.Sprintf(`{
			"startTime": %q,
			"temperature": 60,
			"temperatureUnit": "F",
			"probabilityOfPrecipitation": {"value": 20},
			"windSpeed": "10 mph",
			"windDirection": "W",
			"shortForecast": "Sunny"
		}`, ts.Format(time.RFC3339)))
	}
	nwsBody := fmt.Sprintf(`{"properties": {"periods": [%s]}}`, strings.Join(periods, ","))

	nwsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nwsBody)
	}))
	defer nwsSrv.Close()

	nws := NewNWSProvider(nwsSrv.Client(), fetchcache.New(), nwsSrv.URL)
	nwsSeries, err := nws.FetchHourly(context.Background(), forecast.PointMetadata{
		Timezone:  "America/Denver",
		HourlyURL: nwsSrv.URL + "/hourly",
	}, forecast.UnitsImperial)
	require.NoError(t, err)

	// Open-Meteo: the same instants as parallel columns.
	fixture := openMeteoFixture{
		times:         instants,
		tempUnit:      "°F",
		windSpeedUnit: "mp/h",
	}
	for range instants {
		fixture.temps = append(fixture.temps, 60)
		fixture.precip = append(fixture.precip, floatPtr(20))
		fixture.codes = append(fixture.codes, 0)
		fixture.windSpeeds = append(fixture.windSpeeds, 10)
		fixture.windGusts = append(fixture.windGusts, nil)
		fixture.windDirs = append(fixture.windDirs, 270)
	}

	om := newOpenMeteoProviderForTest(t, fixture.body())
	om.now = func() time.Time { return instants[0] }
	omSeries, err := om.FetchHourly(context.Background(), forecast.PointMetadata{
		Location: forecast.Location{Lat: 39.7392, Lng: -104.9903},
		Timezone: "America/Denver",
	}, forecast.UnitsImperial)
	require.NoError(t, err)

	nwsDays := forecast.Aggregate(nwsSeries.Records, tz, 3, forecast.DefaultDaylightWindow)
	omDays := forecast.Aggregate(omSeries.Records, tz, 3, forecast.DefaultDaylightWindow)

	require.Equal(t, len(nwsDays), len(omDays))
	for i := range nwsDays {
		assert.Equal(t, nwsDays[i].DateKey, omDays[i].DateKey)
		assert.Equal(t, len(nwsDays[i].Hours), len(omDays[i].Hours))
		assert.Equal(t, nwsDays[i].MinTemp, omDays[i].MinTemp)
		assert.Equal(t, nwsDays[i].MaxTemp, omDays[i].MaxTemp)
	}
}
