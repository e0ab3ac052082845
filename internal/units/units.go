package units

// WindBucket is a qualitative wind strength class used for display styling.
type WindBucket string

const (
	WindLow    WindBucket = "low"
	WindMedium WindBucket = "medium"
	WindHigh   WindBucket = "high"
)

// WindSpeedBucket classifies a wind speed into low/medium/high.
// Speeds are normalized to mph before thresholding: km/h is divided by 1.62,
// knots by 1.15078, anything else is assumed to already be mph.
func WindSpeedBucket(speed float64, unit string) WindBucket {
	mph := speed
	switch unit {
	case "kph", "km/h", "kmh":
		mph = speed / 1.62
	case "kt", "kn", "knots":
		mph = speed / 1.15078
	}

	if mph < 12 {
		return WindLow
	}
	if mph >= 16 {
		return WindHigh
	}
	return WindMedium
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassDirection quantizes a bearing in degrees to one of the 16 compass
// points. Sectors are 22.5 degrees wide and centered on each point; north
// wraps around 0/360 and is checked first.
func CompassDirection(degrees float64) string {
	const half = 11.25

	if degrees > 360-half || degrees < half {
		return "N"
	}
	for i := 1; i < len(compassPoints); i++ {
		center := float64(i) * 22.5
		if degrees >= center-half && degrees <= center+half {
			return compassPoints[i]
		}
	}
	return "N"
}

// WMO 4677 weather interpretation codes as published by Open-Meteo.
var wmoDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snowfall",
	73: "Moderate snowfall",
	75: "Heavy snowfall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// WeatherCodeDescription translates a numeric WMO weather code into a short
// English phrase. The second return value is false for unmapped codes.
func WeatherCodeDescription(code int) (string, bool) {
	desc, ok := wmoDescriptions[code]
	return desc, ok
}
