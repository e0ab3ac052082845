package forecast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yemble/pointcast/internal/units"
)

// UnitSystem selects the display units requested from upstream providers.
type UnitSystem string

const (
	UnitsImperial UnitSystem = "imperial"
	UnitsMetric   UnitSystem = "metric"
)

// Location is a point on the map, replaced wholesale on each user interaction.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are inside the usual ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Hash returns the fixed-precision identity used to detect "same location"
// and suppress redundant work.
func (l Location) Hash() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lng)
}

// PointMetadata is the resolved context for a location: which provider owns
// it, its IANA timezone, and (when the upstream hands one out) the locator
// for the hourly series.
type PointMetadata struct {
	Location     Location
	Provider     string
	Timezone     string
	LocationName string

	// HourlyURL is empty for providers that derive the hourly locator from
	// location, timezone and units at fetch time.
	HourlyURL string
}

// HourRecord is the normalized shape of one upstream hourly sample. Both
// provider adapters produce it so the aggregator never branches on provider.
type HourRecord struct {
	Timestamp         time.Time // always UTC
	Temperature       float64
	TemperatureUnit   string
	PrecipProbability int // 0..100
	WindSpeed         float64
	WindSpeedUnit     string
	WindGust          *float64
	WindDirection     string // 16-point compass code
	Description       string
	IconURL           string // per-hour condition icon; empty when the provider has none
}

// HourlySeries is a provider's full normalized response for one point.
type HourlySeries struct {
	Records  []HourRecord
	Timezone string

	// Geometry is the forecast-area polygon some providers attach, passed
	// through verbatim as GeoJSON for the map layer.
	Geometry json.RawMessage
}

// HourSummary is a display-ready hour cell.
type HourSummary struct {
	Time              string           `json:"time"`
	Temperature       int              `json:"temperature"`
	TemperatureUnit   string           `json:"temperatureUnit"`
	PrecipProbability int              `json:"precipitationProbabilityPct"`
	WindSpeed         float64          `json:"windSpeed"`
	WindGust          *float64         `json:"windGust,omitempty"`
	WindSpeedUnit     string           `json:"windSpeedUnit"`
	WindDirection     string           `json:"windDirection"`
	WindBucket        units.WindBucket `json:"windBucket"`
	Description       string           `json:"description"`
	IconURL           string           `json:"icon,omitempty"`
}

// DaySummary is one day of the forecast strip. MinTemp/MaxTemp cover every
// hour inside the daylight window, not just the interval-sampled Hours list,
// so a sampled hour may fall outside [MinTemp, MaxTemp]'s source set.
type DaySummary struct {
	DateKey     string        `json:"dateKey"` // yyyy-MM-dd in the target timezone
	DisplayDate string        `json:"displayDate"`
	Timezone    string        `json:"timezone"`
	MinTemp     int           `json:"minTemp"`
	MaxTemp     int           `json:"maxTemp"`
	Hours       []HourSummary `json:"hours"`
}

// Settings is the persisted user state: where to look by default and how to
// sample and label the forecast. Last write wins.
type Settings struct {
	DefaultLocation Location   `json:"defaultLocation"`
	IntervalHours   int        `json:"intervalHours"` // 1, 2 or 3
	Units           UnitSystem `json:"units"`
}
