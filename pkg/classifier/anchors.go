package classifier

import (
	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

func sogOrZero(p *model.VoyagePoint) float64 {
	sog, _ := p.Entry.SOG()
	return sog
}

// stationaryAt reports whether point i is slow and followed either by a long
// silence or by a point on another UTC calendar date.
func stationaryAt(points []model.VoyagePoint, i int, th Thresholds) bool {
	if i+1 >= len(points) || sogOrZero(&points[i]) >= th.GapSOG {
		return false
	}
	cur, okCur := points[i].Entry.Time()
	next, okNext := points[i+1].Entry.Time()
	if !okCur || !okNext {
		return false
	}
	if next.Sub(cur) > th.Gap {
		return true
	}
	cd, _ := points[i].Entry.Datetime.Date()
	nd, _ := points[i+1].Entry.Datetime.Date()
	return !cd.Equal(nd)
}

// SeedAnchors walks the points forward and flags those that are anchored
// judging only by the point itself and what came before it.
func SeedAnchors(points []model.VoyagePoint, th Thresholds) []bool {
	flags := make([]bool, len(points))

	var (
		lastAnchor *geo.Point
		prev       *geo.Point
		path       float64
	)
	for i := range points {
		p := &points[i]
		coord, hasPos := p.Coord()
		if hasPos && prev != nil {
			path += geo.DistanceNM(*prev, coord)
		}

		anchored := i == 0 ||
			stationaryAt(points, i, th) ||
			p.Entry.IsStopped() ||
			lastAnchor == nil ||
			(!hasPos && flags[i-1]) ||
			path <= th.MoveNM

		flags[i] = anchored
		if anchored && hasPos {
			c := coord
			lastAnchor = &c
			path = 0
		}
		if hasPos {
			c := coord
			prev = &c
		}
	}
	return flags
}

// CorrectTrailing walks the points backward and anchors points that the
// forward pass could not: the slow tail of a voyage and points that sit
// next to a later anchorage. It returns a new slice.
func CorrectTrailing(points []model.VoyagePoint, flags []bool, th Thresholds) []bool {
	out := make([]bool, len(flags))
	copy(out, flags)

	var next *geo.Point
	for i := len(points) - 1; i >= 0; i-- {
		p := &points[i]
		coord, hasPos := p.Coord()

		if !out[i] {
			switch {
			case i == len(points)-1 && sogOrZero(p) < th.GapSOG:
				out[i] = true
			case stationaryAt(points, i, th):
				out[i] = true
			case hasPos && next != nil && geo.DistanceNM(coord, *next) <= th.MoveNM:
				out[i] = true
			}
		}

		if out[i] && hasPos {
			c := coord
			next = &c
		}
	}
	return out
}
