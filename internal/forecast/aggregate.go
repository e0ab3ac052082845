package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yemble/pointcast/internal/units"
)

// DaylightWindow is the inclusive local-hour range eligible for day summaries.
type DaylightWindow struct {
	From int
	To   int
}

// DefaultDaylightWindow keeps the strip to waking hours.
var DefaultDaylightWindow = DaylightWindow{From: 6, To: 18}

type dayAccum struct {
	displayDate string
	minTemp     float64
	maxTemp     float64
	hours       []HourSummary
}

// Aggregate reduces normalized hourly records to an ordered list of day
// summaries in the target timezone. Min/max temperatures are computed over
// every record inside the daylight window; the Hours list additionally keeps
// only local hours that are a multiple of intervalHours.
func Aggregate(records []HourRecord, tz *time.Location, intervalHours int, window DaylightWindow) []DaySummary {
	if tz == nil {
		tz = time.UTC
	}
	if intervalHours < 1 {
		intervalHours = 1
	}

	days := make(map[string]*dayAccum)

	for _, rec := range records {
		local := rec.Timestamp.In(tz)
		hour := local.Hour()
		if hour < window.From || hour > window.To {
			continue
		}

		key := local.Format("2006-01-02")
		day, ok := days[key]
		if !ok {
			day = &dayAccum{
				displayDate: local.Format("Mon 1/2"),
				minTemp:     rec.Temperature,
				maxTemp:     rec.Temperature,
			}
			days[key] = day
		} else {
			if rec.Temperature < day.minTemp {
				day.minTemp = rec.Temperature
			}
			if rec.Temperature > day.maxTemp {
				day.maxTemp = rec.Temperature
			}
		}

		if hour%intervalHours != 0 {
			continue
		}
		day.hours = append(day.hours, hourSummary(rec, local))
	}

	// Lexical order on yyyy-MM-dd keys is date order.
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]DaySummary, 0, len(keys))
	for _, k := range keys {
		day := days[k]
		out = append(out, DaySummary{
			DateKey:     k,
			DisplayDate: day.displayDate,
			Timezone:    tz.String(),
			MinTemp:     int(math.Trunc(day.minTemp)),
			MaxTemp:     int(math.Trunc(day.maxTemp)),
			Hours:       day.hours,
		})
	}
	return out
}

func hourSummary(rec HourRecord, local time.Time) HourSummary {
	return HourSummary{
		Time:              strings.ToLower(local.Format("3PM")),
		Temperature:       int(math.Trunc(rec.Temperature)),
		TemperatureUnit:   rec.TemperatureUnit,
		PrecipProbability: rec.PrecipProbability,
		WindSpeed:         rec.WindSpeed,
		WindGust:          rec.WindGust,
		WindSpeedUnit:     rec.WindSpeedUnit,
		WindDirection:     rec.WindDirection,
		WindBucket:        units.WindSpeedBucket(rec.WindSpeed, rec.WindSpeedUnit),
		Description:       rec.Description,
		IconURL:           rec.IconURL,
	}
}
