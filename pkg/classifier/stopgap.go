package classifier

import "voyagelog/pkg/model"

// MarkStopGaps flags every connection that starts inside a declared stop.
// A stop opens on an entry whose text says "stopped" and closes on one that
// says "sailing"; "stopped" wins when both appear. Flags are recomputed from
// scratch, so calling it again yields the same result.
func MarkStopGaps(points []model.VoyagePoint) {
	for i := range points {
		points[i].SkipConnectionToNext = false
		points[i].SkipConnectionFromPrev = false
	}

	active := false
	for i := range points {
		switch {
		case points[i].Entry.IsStopped():
			active = true
		case points[i].Entry.IsSailing():
			active = false
		}
		if active && i+1 < len(points) {
			points[i].SkipConnectionToNext = true
			points[i+1].SkipConnectionFromPrev = true
		}
	}
}
