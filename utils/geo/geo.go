package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"mapquester/models"
)

// EarthRadiusMeters is the mean Earth radius used for distances.
const EarthRadiusMeters = 6371008.8

// ValidCoordinate reports whether c is a finite WGS84 latitude/longitude pair.
func ValidCoordinate(c models.Coordinate) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) || math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude).IsValid()
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b models.Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
