package export

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

// Track splits a voyage's positioned points into line segments, breaking
// wherever a connection was flagged as crossing a declared stop.
// Segments with fewer than two points are dropped.
func Track(v *model.Voyage) orb.MultiLineString {
	var (
		track orb.MultiLineString
		line  orb.LineString
	)
	flush := func() {
		if len(line) >= 2 {
			track = append(track, line)
		}
		line = nil
	}

	for i := range v.Points {
		p := &v.Points[i]
		c, ok := p.Coord()
		if !ok {
			continue
		}
		line = append(line, geo.ToOrb(c))
		if p.SkipConnectionToNext {
			flush()
		}
	}
	flush()
	return track
}

// Anchorages returns where each run of anchored points ended, which is
// where the boat lay before moving on.
func Anchorages(v *model.Voyage) []model.VoyagePoint {
	var out []model.VoyagePoint
	var last *model.VoyagePoint
	for i := range v.Points {
		p := &v.Points[i]
		if _, ok := p.Coord(); !ok {
			continue
		}
		if p.Activity == model.ActivityAnchored {
			last = p
			continue
		}
		if last != nil {
			out = append(out, *last)
			last = nil
		}
	}
	if last != nil {
		out = append(out, *last)
	}
	return out
}

// GeoJSON builds a feature collection with one track per voyage plus its anchorages.
func GeoJSON(voyages []model.Voyage) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range voyages {
		v := &voyages[i]

		if track := Track(v); len(track) > 0 {
			f := geojson.NewFeature(track)
			f.ID = v.ID
			f.Properties["kind"] = "track"
			f.Properties["voyageId"] = v.ID
			f.Properties["startTime"] = v.StartTime.String()
			f.Properties["endTime"] = v.EndTime.String()
			f.Properties["distance"] = v.Distance
			f.Properties["avgSpeed"] = v.AvgSpeed
			f.Properties["maxSpeed"] = v.MaxSpeed
			if b, ok := geo.Bound(v.Coords()); ok {
				f.BBox = geojson.NewBBox(b)
			}
			fc.Append(f)
		}

		for _, a := range Anchorages(v) {
			c, _ := a.Coord()
			f := geojson.NewFeature(geo.ToOrb(c))
			f.Properties["kind"] = "anchorage"
			f.Properties["voyageId"] = v.ID
			f.Properties["time"] = a.Entry.Datetime.String()
			if a.Entry.Notes() != "" {
				f.Properties["text"] = a.Entry.Notes()
			}
			fc.Append(f)
		}
	}
	return fc
}

// WriteGeoJSON writes the voyages as a GeoJSON FeatureCollection.
func WriteGeoJSON(path string, voyages []model.Voyage) error {
	data, err := json.MarshalIndent(GeoJSON(voyages), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return WriteFileAtomic(path, data)
}
