package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yemble/pointcast/internal/fetchcache"
	"github.com/yemble/pointcast/internal/forecast"
	"github.com/yemble/pointcast/internal/units"
)

// recencyCutoff drops hours more than this far in the past at fetch time, so
// a 14-day forward series does not open with stale rows.
const recencyCutoff = 2 * time.Hour

// OpenMeteoProvider adapts the Open-Meteo forecast API. The hourly response
// is columnar: parallel arrays indexed by hour position, zipped into records
// by index. Timezone resolution goes through a separate lookup service.
type OpenMeteoProvider struct {
	name        string
	baseURL     string
	tzLookupURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
	cache       *fetchcache.Cache
	now         func() time.Time
}

func NewOpenMeteoProvider(client *http.Client, cache *fetchcache.Cache, baseURL, tzLookupURL string) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:        "openmeteo",
		baseURL:     baseURL,
		tzLookupURL: tzLookupURL,
		httpCfg:     defaultHTTPConfig(client),
		circuit:     cb,
		cache:       cache,
		now:         time.Now,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) ResolveMetadata(ctx context.Context, loc forecast.Location) (forecast.PointMetadata, error) {
	locator := fmt.Sprintf("%s?lat=%.4f&lng=%.4f", p.tzLookupURL, loc.Lat, loc.Lng)

	payload, err := fetchThroughCache(ctx, p.cache, p.httpCfg, p.circuit, locator, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, locator, nil)
	})
	if err != nil {
		return forecast.PointMetadata{}, err
	}

	var zone struct {
		ZoneName string `json:"zoneName"`
	}
	if err := json.Unmarshal(payload, &zone); err != nil {
		return forecast.PointMetadata{}, &forecast.UpstreamError{Locator: locator, Err: err}
	}

	tz := zone.ZoneName
	if tz == "" {
		// Lookup answered but without a zone; fall back to the system zone.
		tz = time.Local.String()
	}

	// The hourly locator is derived from location, timezone and units at
	// fetch time, never stored here.
	return forecast.PointMetadata{
		Location: loc,
		Provider: p.name,
		Timezone: tz,
	}, nil
}

type openMeteoHourlyResponse struct {
	Hourly struct {
		Time                     []int64    `json:"time"`
		Temperature2M            []float64  `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []int      `json:"weather_code"`
		WindSpeed10M             []float64  `json:"wind_speed_10m"`
		WindGusts10M             []*float64 `json:"wind_gusts_10m"`
		WindDirection10M         []float64  `json:"wind_direction_10m"`
	} `json:"hourly"`
	HourlyUnits map[string]string `json:"hourly_units"`
}

func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, meta forecast.PointMetadata, unitSystem forecast.UnitSystem) (forecast.HourlySeries, error) {
	locator := p.hourlyLocator(meta, unitSystem)

	payload, err := fetchThroughCache(ctx, p.cache, p.httpCfg, p.circuit, locator, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, locator, nil)
	})
	if err != nil {
		return forecast.HourlySeries{}, err
	}

	var hourly openMeteoHourlyResponse
	if err := json.Unmarshal(payload, &hourly); err != nil {
		return forecast.HourlySeries{}, &forecast.UpstreamError{Locator: locator, Err: err}
	}

	tempUnit := hourly.HourlyUnits["temperature_2m"]
	windUnit := hourly.HourlyUnits["wind_speed_10m"]

	cutoff := p.now().Add(-recencyCutoff)

	h := hourly.Hourly
	records := make([]forecast.HourRecord, 0, len(h.Time))
	for i, unix := range h.Time {
		ts := time.Unix(unix, 0).UTC()
		if ts.Before(cutoff) {
			continue
		}

		rec := forecast.HourRecord{
			Timestamp:       ts,
			TemperatureUnit: tempUnit,
			WindSpeedUnit:   windUnit,
		}
		if i < len(h.Temperature2M) {
			rec.Temperature = h.Temperature2M[i]
		}
		if i < len(h.PrecipitationProbability) && h.PrecipitationProbability[i] != nil {
			rec.PrecipProbability = int(*h.PrecipitationProbability[i])
		}
		if i < len(h.WindSpeed10M) {
			rec.WindSpeed = h.WindSpeed10M[i]
		}
		if i < len(h.WindGusts10M) {
			rec.WindGust = h.WindGusts10M[i]
		}
		if i < len(h.WindDirection10M) {
			rec.WindDirection = units.CompassDirection(h.WindDirection10M[i])
		}
		if i < len(h.WeatherCode) {
			// Unknown codes yield an empty description, never an error.
			rec.Description, _ = units.WeatherCodeDescription(h.WeatherCode[i])
		}

		records = append(records, rec)
	}

	return forecast.HourlySeries{
		Records:  records,
		Timezone: meta.Timezone,
	}, nil
}

func (p *OpenMeteoProvider) hourlyLocator(meta forecast.PointMetadata, unitSystem forecast.UnitSystem) string {
	tempUnit := "fahrenheit"
	windUnit := "mph"
	if unitSystem == forecast.UnitsMetric {
		tempUnit = "celsius"
		windUnit = "kmh"
	}

	values := url.Values{}
	values.Set("forecast_days", "14")
	values.Set("latitude", fmt.Sprintf("%.4f", meta.Location.Lat))
	values.Set("longitude", fmt.Sprintf("%.4f", meta.Location.Lng))
	values.Set("hourly", "temperature_2m,precipitation_probability,weather_code,wind_speed_10m,wind_gusts_10m,wind_direction_10m")
	values.Set("temperature_unit", tempUnit)
	values.Set("wind_speed_unit", windUnit)
	values.Set("timeformat", "unixtime")
	values.Set("timezone", meta.Timezone)

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}
