package model

import (
	"voyagelog/pkg/geo"
)

// VoyagePoint is one positioned sample of a voyage, with derived activity data.
type VoyagePoint struct {
	Lon   *float64 `json:"lon,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Entry LogEntry `json:"entry"`

	Activity               Activity `json:"activity,omitempty"`
	DistanceFromAnchor     float64  `json:"distanceFromAnchor"`
	SkipConnectionToNext   bool     `json:"skipConnectionToNext,omitempty"`
	SkipConnectionFromPrev bool     `json:"skipConnectionFromPrev,omitempty"`
}

// NewVoyagePoint clones the entry and copies its position, if known.
func NewVoyagePoint(e LogEntry) VoyagePoint {
	p := VoyagePoint{Entry: e.Clone()}
	if c, ok := e.Coord(); ok {
		lon, lat := c.Lon, c.Lat
		p.Lon = &lon
		p.Lat = &lat
	}
	return p
}

// Coord returns the point position when known.
func (p *VoyagePoint) Coord() (geo.Point, bool) {
	if p.Lon == nil || p.Lat == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *p.Lat, Lon: *p.Lon}, true
}

// SetActivity records the classification on the point and mirrors it onto its entry.
func (p *VoyagePoint) SetActivity(a Activity, distanceFromAnchor float64) {
	p.Activity = a
	p.DistanceFromAnchor = distanceFromAnchor
	p.Entry.Activity = a
	d := distanceFromAnchor
	p.Entry.DistanceFromAnchor = &d
}

// Voyage is a group of log entries with summary statistics.
type Voyage struct {
	ID             string        `json:"id"`
	StartTime      Timestamp     `json:"startTime"`
	EndTime        Timestamp     `json:"endTime"`
	Distance       float64       `json:"distance"`
	MaxSpeed       float64       `json:"maxSpeed"`
	AvgSpeed       float64       `json:"avgSpeed"`
	MaxWind        float64       `json:"maxWind"`
	AvgWindSpeed   float64       `json:"avgWindSpeed"`
	AvgWindHeading *float64      `json:"avgWindHeading"`
	MaxSpeedCoord  *[2]float64   `json:"maxSpeedCoord"`
	Points         []VoyagePoint `json:"points"`
}

// Coords returns the positions of all positioned points in order.
func (v *Voyage) Coords() []geo.Point {
	out := make([]geo.Point, 0, len(v.Points))
	for i := range v.Points {
		if c, ok := v.Points[i].Coord(); ok {
			out = append(out, c)
		}
	}
	return out
}

// ActivityCounts returns how many points carry each activity label.
func (v *Voyage) ActivityCounts() map[Activity]int {
	counts := make(map[Activity]int, 3)
	for i := range v.Points {
		if v.Points[i].Activity != "" {
			counts[v.Points[i].Activity]++
		}
	}
	return counts
}
