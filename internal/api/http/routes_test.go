package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yemble/pointcast/internal/forecast"
)

// stubProvider returns a fixed hourly series for any location.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) ResolveMetadata(_ context.Context, loc forecast.Location) (forecast.PointMetadata, error) {
	return forecast.PointMetadata{
		Location:     loc,
		Provider:     "stub",
		Timezone:     "America/Denver",
		LocationName: "Estes Park, CO",
	}, nil
}

func (stubProvider) FetchHourly(_ context.Context, meta forecast.PointMetadata, _ forecast.UnitSystem) (forecast.HourlySeries, error) {
	tz, _ := time.LoadLocation(meta.Timezone)
	var records []forecast.HourRecord
	for hour := 0; hour < 24; hour++ {
		records = append(records, forecast.HourRecord{
			Timestamp:       time.Date(2025, time.June, 14, hour, 0, 0, 0, tz).UTC(),
			Temperature:     50 + float64(hour),
			TemperatureUnit: "F",
			WindSpeed:       10,
			WindSpeedUnit:   "mph",
			WindDirection:   "W",
			Description:     "Sunny",
		})
	}
	return forecast.HourlySeries{Records: records, Timezone: meta.Timezone}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	st := forecast.Settings{
		DefaultLocation: forecast.Location{Lat: 40.4414, Lng: -105.7551},
		IntervalHours:   3,
		Units:           forecast.UnitsImperial,
	}
	controller := forecast.NewController(stubProvider{}, nil, nil, st)

	app := fiber.New()
	RegisterRoutes(app, controller)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func TestGetForecastReturnsCurrentSnapshot(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/forecast", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stub", body["provider"])
}

func TestGetForecastForPoint(t *testing.T) {
	assert := assert.New(t)
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/forecast?lat=39.7392&lng=-104.9903", "")
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("39.7392,-104.9903", body["locationHash"])
	assert.Equal("Estes Park, CO", body["locationName"])
	assert.Equal("America/Denver", body["timezone"])

	days, ok := body["days"].([]interface{})
	require.True(t, ok)
	require.Len(t, days, 1)
}

func TestGetForecastRejectsBadCoordinates(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodGet, "/api/v1/forecast?lat=abc&lng=-104.9903", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/api/v1/forecast?lat=95&lng=-104.9903", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostLocationAccepted(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/api/v1/location", `{"lat": 39.7392, "lng": -104.9903}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "39.7392,-104.9903", body["locationHash"])
}

func TestPostLocationRejectsOutOfRange(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPost, "/api/v1/location", `{"lat": 120, "lng": -104.9903}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSettings(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/api/v1/settings", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["intervalHours"])
	assert.Equal(t, "imperial", body["units"])
}

func TestPutSettingsInterval(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPut, "/api/v1/settings", `{"intervalHours": 2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["intervalHours"])
}

func TestPutSettingsRejectsBadValues(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPut, "/api/v1/settings", `{"intervalHours": 9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPut, "/api/v1/settings", `{"units": "nautical"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutSettingsUnits(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPut, "/api/v1/settings", `{"units": "metric"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "metric", body["units"])
}
