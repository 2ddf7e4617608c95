package classifier

import (
	"context"
	"log/slog"

	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

// Label is the final classification of one point.
type Label struct {
	Activity           model.Activity
	DistanceFromAnchor float64 // nautical miles travelled since the last anchored point
}

// Labels assigns the final activity to every point given the anchor flags.
// Points that are neither flagged nor stopped are motoring while still near
// the anchor, or when the boat is fast in light wind, and sailing otherwise.
func Labels(points []model.VoyagePoint, flags []bool, th Thresholds) []Label {
	labels := make([]Label, len(points))

	var (
		prev  *geo.Point
		since float64
	)
	for i := range points {
		p := &points[i]
		coord, hasPos := p.Coord()

		if flags[i] || p.Entry.IsStopped() {
			labels[i] = Label{Activity: model.ActivityAnchored}
			since = 0
			if hasPos {
				c := coord
				prev = &c
			}
			continue
		}

		if hasPos {
			if prev != nil {
				since += geo.DistanceNM(*prev, coord)
			}
			c := coord
			prev = &c
		}

		act := model.ActivitySailing
		if since <= th.NearAnchorNM || motorsailing(p, th) {
			act = model.ActivityMotoring
		}
		labels[i] = Label{Activity: act, DistanceFromAnchor: since}
	}
	return labels
}

// motorsailing reports a known light wind together with a known fast speed.
func motorsailing(p *model.VoyagePoint, th Thresholds) bool {
	ws, okWind := p.Entry.WindSpeed()
	sog, okSOG := p.Entry.SOG()
	return okWind && okSOG && ws < th.LowWind && sog > th.FastSpeed
}

// Classify runs the three passes and records the labels on the points and their entries.
func Classify(points []model.VoyagePoint, th Thresholds) {
	if len(points) == 0 {
		return
	}
	flags := SeedAnchors(points, th)
	flags = CorrectTrailing(points, flags, th)
	labels := Labels(points, flags, th)

	for i, l := range labels {
		points[i].SetActivity(l.Activity, l.DistanceFromAnchor)
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		var anchored, motoring, sailing int
		for _, l := range labels {
			switch l.Activity {
			case model.ActivityAnchored:
				anchored++
			case model.ActivityMotoring:
				motoring++
			case model.ActivitySailing:
				sailing++
			}
		}
		slog.Debug("Classified voyage points", "points", len(points), "anchored", anchored, "motoring", motoring, "sailing", sailing)
	}
}
