// Package geo resolves a map point to a display name via reverse geocoding.
// The NWS provider gets a name from its own metadata response; this covers
// providers that do not.
package geo

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/yemble/pointcast/internal/forecast"
)

// Namer reverse-geocodes points using the Google geocoding API.
type Namer struct{}

// NewNamer configures the geocoder with the given API key and returns a
// Namer, or nil when no key is configured (resolution then degrades to an
// unnamed location).
func NewNamer(apiKey string) *Namer {
	if apiKey == "" {
		return nil
	}
	geocoder.ApiKey = apiKey
	return &Namer{}
}

// ReverseName returns a short place name for the point, or an empty string
// when the geocoder has nothing for it.
func (n *Namer) ReverseName(loc forecast.Location) (string, error) {
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocoding %s: %w", loc.Hash(), err)
	}
	if len(addresses) == 0 {
		return "", nil
	}

	addr := addresses[0]
	name := addr.City
	if name == "" {
		name = addr.County
	}
	if name != "" && addr.State != "" {
		return fmt.Sprintf("%s, %s", name, addr.State), nil
	}
	if name == "" {
		name = addr.FormattedAddress
	}
	return name, nil
}
