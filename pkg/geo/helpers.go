package geo

import (
	"github.com/paulmach/orb"
)

// ToOrb converts a Point to an orb.Point (lon, lat order).
func ToOrb(p Point) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// FromOrb converts an orb.Point back to a Point.
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// LineString builds an orb.LineString from an ordered list of points.
func LineString(points []Point) orb.LineString {
	ls := make(orb.LineString, 0, len(points))
	for _, p := range points {
		ls = append(ls, ToOrb(p))
	}
	return ls
}

// PathLengthNM sums the great-circle legs of a line string in nautical miles.
func PathLengthNM(ls orb.LineString) float64 {
	var total float64
	for i := 1; i < len(ls); i++ {
		total += DistanceNM(FromOrb(ls[i-1]), FromOrb(ls[i]))
	}
	return total
}

// Bound returns the bounding box of the points. ok is false for empty input.
func Bound(points []Point) (b orb.Bound, ok bool) {
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	return LineString(points).Bound(), true
}
