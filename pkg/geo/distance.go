// Package geo holds great-circle helpers for proximity checks.
package geo

import (
	"math"

	"github.com/aretw0/locus/pkg/core"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371e3

// MetersPerMile is the length of a statute mile.
const MetersPerMile = 1609.344

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b core.Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Within reports whether b is at most threshold meters from a. The boundary is inclusive.
func Within(a, b core.Coordinate, threshold float64) bool {
	return Distance(a, b) <= threshold
}

// Miles converts meters to statute miles.
func Miles(meters float64) float64 {
	return meters / MetersPerMile
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
