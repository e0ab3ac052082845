package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/yemble/pointcast/internal/forecast"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// Provider selects the upstream adapter: "nws" or "openmeteo".
	Provider string

	NWSBaseURL        string
	OpenMeteoBaseURL  string
	TimezoneLookupURL string

	// GeocoderAPIKey enables reverse geocoding of clicked points into place
	// names. Optional.
	GeocoderAPIKey string

	// SettingsPath is where user settings are persisted.
	SettingsPath string

	// RefreshInterval controls how often the home-location forecast is
	// re-run in the background.
	RefreshInterval time.Duration

	// Defaults used until the settings file says otherwise.
	DefaultSettings forecast.Settings
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Provider = getenvDefault("WEATHER_PROVIDER", "nws")

	cfg.NWSBaseURL = getenvDefault("NWS_BASE_URL", "https://api.weather.gov")
	cfg.OpenMeteoBaseURL = getenvDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.TimezoneLookupURL = getenvDefault("TZ_LOOKUP_URL", "https://api.timezonedb.com/v2.1/get-time-zone")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.SettingsPath = getenvDefault("SETTINGS_PATH", "pointcast-settings.json")

	refreshStr := getenvDefault("REFRESH_INTERVAL", "30m")
	refresh, err := time.ParseDuration(refreshStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.DefaultSettings = forecast.Settings{
		DefaultLocation: forecast.Location{
			Lat: getenvFloat("DEFAULT_LAT", 40.4414),
			Lng: getenvFloat("DEFAULT_LNG", -105.7551),
		},
		IntervalHours: getenvInt("DEFAULT_INTERVAL_HOURS", 3),
		Units:         forecast.UnitSystem(getenvDefault("DEFAULT_UNITS", string(forecast.UnitsImperial))),
	}
	if !cfg.DefaultSettings.DefaultLocation.Valid() {
		return nil, fmt.Errorf("default location out of range")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
