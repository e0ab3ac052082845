package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yemble/pointcast/internal/fetchcache"
	"github.com/yemble/pointcast/internal/forecast"
)

// NWSProvider adapts the National Weather Service API. Resolution is a single
// /points request whose response carries both the timezone and the locator of
// the hourly series.
type NWSProvider struct {
	name      string
	baseURL   string
	userAgent string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	cache     *fetchcache.Cache
}

func NewNWSProvider(client *http.Client, cache *fetchcache.Cache, baseURL string) *NWSProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nws",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &NWSProvider{
		name:      "nws",
		baseURL:   baseURL,
		userAgent: "pointcast (github.com/yemble/pointcast)",
		httpCfg:   defaultHTTPConfig(client),
		circuit:   cb,
		cache:     cache,
	}
}

func (p *NWSProvider) Name() string {
	return p.name
}

type nwsPointsResponse struct {
	Properties struct {
		TimeZone         string `json:"timeZone"`
		ForecastHourly   string `json:"forecastHourly"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type nwsHourlyResponse struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		Periods []nwsPeriod `json:"periods"`
	} `json:"properties"`
}

type nwsPeriod struct {
	StartTime                  string  `json:"startTime"`
	Temperature                float64 `json:"temperature"`
	TemperatureUnit            string  `json:"temperatureUnit"`
	ProbabilityOfPrecipitation struct {
		Value *int `json:"value"`
	} `json:"probabilityOfPrecipitation"`
	WindSpeed     string `json:"windSpeed"`
	WindDirection string `json:"windDirection"`
	ShortForecast string `json:"shortForecast"`
	Icon          string `json:"icon"`
}

func (p *NWSProvider) ResolveMetadata(ctx context.Context, loc forecast.Location) (forecast.PointMetadata, error) {
	locator := fmt.Sprintf("%s/points/%.4f,%.4f", p.baseURL, loc.Lat, loc.Lng)

	payload, err := fetchThroughCache(ctx, p.cache, p.httpCfg, p.circuit, locator, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, locator, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		return req, nil
	})
	if err != nil {
		return forecast.PointMetadata{}, err
	}

	var points nwsPointsResponse
	if err := json.Unmarshal(payload, &points); err != nil {
		return forecast.PointMetadata{}, &forecast.UpstreamError{Locator: locator, Err: err}
	}
	if points.Properties.TimeZone == "" || points.Properties.ForecastHourly == "" {
		return forecast.PointMetadata{}, &forecast.UpstreamError{
			Locator: locator,
			Err:     fmt.Errorf("points response missing timeZone or forecastHourly"),
		}
	}

	name := points.Properties.RelativeLocation.Properties.City
	if name != "" && points.Properties.RelativeLocation.Properties.State != "" {
		name = fmt.Sprintf("%s, %s", name, points.Properties.RelativeLocation.Properties.State)
	}

	return forecast.PointMetadata{
		Location:     loc,
		Provider:     p.name,
		Timezone:     points.Properties.TimeZone,
		LocationName: name,
		HourlyURL:    points.Properties.ForecastHourly,
	}, nil
}

func (p *NWSProvider) FetchHourly(ctx context.Context, meta forecast.PointMetadata, unitSystem forecast.UnitSystem) (forecast.HourlySeries, error) {
	locator := meta.HourlyURL

	payload, err := fetchThroughCache(ctx, p.cache, p.httpCfg, p.circuit, locator, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, locator, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", p.userAgent)
		return req, nil
	})
	if err != nil {
		return forecast.HourlySeries{}, err
	}

	var hourly nwsHourlyResponse
	if err := json.Unmarshal(payload, &hourly); err != nil {
		return forecast.HourlySeries{}, &forecast.UpstreamError{Locator: locator, Err: err}
	}

	records := make([]forecast.HourRecord, 0, len(hourly.Properties.Periods))
	for _, per := range hourly.Properties.Periods {
		ts, err := time.Parse(time.RFC3339, per.StartTime)
		if err != nil {
			return forecast.HourlySeries{}, &forecast.UpstreamError{
				Locator: locator,
				Err:     fmt.Errorf("bad period startTime %q: %w", per.StartTime, err),
			}
		}

		precip := 0
		if per.ProbabilityOfPrecipitation.Value != nil {
			precip = *per.ProbabilityOfPrecipitation.Value
		}

		records = append(records, forecast.HourRecord{
			Timestamp:         ts.UTC(),
			Temperature:       per.Temperature,
			TemperatureUnit:   per.TemperatureUnit,
			PrecipProbability: precip,
			WindSpeed:         float64(parseLeadingInt(per.WindSpeed)),
			WindSpeedUnit:     "mph",
			WindDirection:     per.WindDirection,
			Description:       per.ShortForecast,
			IconURL:           per.Icon,
		})
	}

	series := forecast.HourlySeries{
		Records:  records,
		Timezone: meta.Timezone,
	}

	// Pass the forecast-area polygon through for the map layer.
	if len(hourly.Geometry) > 0 {
		var g struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(hourly.Geometry, &g); err == nil && g.Type == "Polygon" {
			series.Geometry = hourly.Geometry
		}
	}

	return series, nil
}

// parseLeadingInt reads the leading integer out of strings like "10 mph" or
// "10 to 15 mph". Anything without a leading integer parses as zero.
func parseLeadingInt(s string) int {
	n := 0
	seen := false
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		seen = true
	}
	if !seen {
		return 0
	}
	return n
}
