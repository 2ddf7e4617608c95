package model

import (
	"strings"
	"time"

	"voyagelog/pkg/geo"
)

// Text markers the crew uses to declare a stop and the end of it.
const (
	markerStopped = "stopped"
	markerSailing = "sailing"
)

// Time returns the entry timestamp.
func (e *LogEntry) Time() (time.Time, bool) {
	return e.Datetime.Time()
}

// Coord returns the recorded position when both components are finite and in range.
func (e *LogEntry) Coord() (geo.Point, bool) {
	if e.Position == nil {
		return geo.Point{}, false
	}
	lon, okLon := e.Position.Longitude.Get()
	lat, okLat := e.Position.Latitude.Get()
	if !okLon || !okLat {
		return geo.Point{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}

// SOG returns speed over ground.
func (e *LogEntry) SOG() (float64, bool) {
	if e.Speed == nil {
		return 0, false
	}
	return e.Speed.SOG.Get()
}

// STW returns speed through water.
func (e *LogEntry) STW() (float64, bool) {
	if e.Speed == nil {
		return 0, false
	}
	return e.Speed.STW.Get()
}

// SpeedSample returns the speed used for voyage statistics: SOG, falling back to STW.
func (e *LogEntry) SpeedSample() (float64, bool) {
	if v, ok := e.SOG(); ok {
		return v, true
	}
	return e.STW()
}

// WindSpeed returns the recorded wind speed: speed, then speedTrue, then speedApparent.
func (e *LogEntry) WindSpeed() (float64, bool) {
	if e.Wind == nil {
		return 0, false
	}
	return first(e.Wind.Speed, e.Wind.SpeedTrue, e.Wind.SpeedApparent)
}

// TrueWindSpeed returns speedTrue, falling back to speed.
//
// The fallback may be an apparent reading on instruments that only log one
// speed; callers get the best available value, not a guaranteed true one.
func (e *LogEntry) TrueWindSpeed() (float64, bool) {
	if e.Wind == nil {
		return 0, false
	}
	return first(e.Wind.SpeedTrue, e.Wind.Speed)
}

// WindDirection returns direction, falling back to directionTrue.
func (e *LogEntry) WindDirection() (float64, bool) {
	if e.Wind == nil {
		return 0, false
	}
	return first(e.Wind.Direction, e.Wind.DirectionTrue)
}

// TrueWindDirection returns directionTrue, falling back to direction.
func (e *LogEntry) TrueWindDirection() (float64, bool) {
	if e.Wind == nil {
		return 0, false
	}
	return first(e.Wind.DirectionTrue, e.Wind.Direction)
}

// CourseOrHeading returns course, falling back to heading.
func (e *LogEntry) CourseOrHeading() (float64, bool) {
	return first(e.Course, e.Heading)
}

// Notes returns all free text attached to the entry.
func (e *LogEntry) Notes() string {
	switch {
	case e.Text == "":
		return e.Note
	case e.Note == "":
		return e.Text
	default:
		return e.Text + " " + e.Note
	}
}

// IsStopped reports whether the entry text declares a stop (case-insensitive).
func (e *LogEntry) IsStopped() bool {
	return containsFold(e.Notes(), markerStopped)
}

// IsSailing reports whether the entry text declares sailing (case-insensitive).
func (e *LogEntry) IsSailing() bool {
	return containsFold(e.Notes(), markerSailing)
}

func containsFold(s, substr string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), substr)
}

func first(values ...Number) (float64, bool) {
	for _, n := range values {
		if v, ok := n.Get(); ok {
			return v, true
		}
	}
	return 0, false
}
