package geo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EarthRadius is the mean Earth radius in meters used for all great-circle math.
const EarthRadius = 6371000

// MetersPerNM is the length of one international nautical mile.
const MetersPerNM = 1852

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// DistanceNM returns the great-circle distance between two points in nautical miles.
func DistanceNM(p1, p2 Point) float64 {
	return Distance(p1, p2) / MetersPerNM
}

// CircularMean returns the mean direction of a set of angles in degrees,
// normalized to [0, 360). The second return value is false for empty input.
//
// For a balanced set (e.g. 0, 90, 180, 270) the vector sum is close to zero
// and the result is whatever direction the rounding residue points to. It is
// always finite.
func CircularMean(anglesDeg []float64) (float64, bool) {
	if len(anglesDeg) == 0 {
		return 0, false
	}
	rad := make([]float64, len(anglesDeg))
	for i, a := range anglesDeg {
		rad[i] = a * (math.Pi / 180.0)
	}
	mean := stat.CircularMean(rad, nil) * (180.0 / math.Pi)
	if math.IsNaN(mean) {
		return 0, true
	}
	return NormalizeAngle360(mean), true
}

// NormalizeAngle360 maps any angle to [0, 360).
func NormalizeAngle360(angleDeg float64) float64 {
	m := math.Mod(angleDeg, 360)
	if m < 0 {
		m += 360
	}
	if m >= 360 {
		m = 0
	}
	return m
}

// NormalizeRelativeAngle maps any angle to (-180, 180]. -180 folds to +180.
func NormalizeRelativeAngle(angleDeg float64) float64 {
	m := NormalizeAngle360(angleDeg)
	if m > 180 {
		m -= 360
	}
	return m
}

// RoundToIncrement rounds v to the nearest multiple of inc.
// With wrap360 set, a result of 360 or more wraps back into [0, 360).
func RoundToIncrement(v, inc float64, wrap360 bool) float64 {
	if inc <= 0 {
		return v
	}
	r := math.Round(v/inc) * inc
	if wrap360 {
		r = NormalizeAngle360(r)
	}
	return r
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
