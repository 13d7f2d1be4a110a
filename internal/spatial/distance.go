package spatial

import (
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// Distance calculates the great-circle distance between two points in meters
// using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// WithinRadius reports whether two points lie within radiusMeters of each other.
func WithinRadius(lat1, lon1, lat2, lon2, radiusMeters float64) bool {
	return Distance(lat1, lon1, lat2, lon2) <= radiusMeters
}
