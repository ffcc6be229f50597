// Package geo computes distances and resolves user positions.
package geo

import (
	"math"

	"doemais/models"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// DefaultCenter is where maps open when no user position is known (São Paulo).
var DefaultCenter = models.Coordinate{Lat: -23.5505, Lng: -46.6333}

// ClusterPrecision is the geohash length used to group nearby listings.
const ClusterPrecision = 6

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance in kilometers between a and b
// using the haversine formula. Inputs are assumed valid.
func Distance(a, b models.Coordinate) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just outside [0, 1] near antipodes.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Geohash returns the cluster key of c, or "" for coordinates the encoder
// cannot place.
func Geohash(c models.Coordinate) string {
	gh := geohash.Encode(c.Lat, c.Lng)
	if gh == "7zzzzzzzzzzz" || len(gh) < ClusterPrecision {
		return ""
	}
	return gh[:ClusterPrecision]
}

// MapCenter picks the map center for a location state.
func MapCenter(state models.LocationState) models.Coordinate {
	if state.Coordinates != nil {
		return *state.Coordinates
	}
	return DefaultCenter
}
