// Package polar derives true-wind-angle performance data from classified voyages.
package polar

import (
	"math"
	"time"

	"voyagelog/pkg/config"
	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

// Options controls polar point rounding and curve aggregation.
type Options struct {
	TWAIncrement float64
	TWSIncrement float64

	BinSize         int
	Percentile      float64
	MinSamples      int
	EdgeExclusion   time.Duration
	MinTWA          float64
	MaxSOGWindRatio float64
}

// DefaultOptions returns the defaults used by the diagram and table.
func DefaultOptions() Options {
	return Options{
		TWAIncrement:    5,
		TWSIncrement:    5,
		BinSize:         10,
		Percentile:      80,
		MinSamples:      3,
		EdgeExclusion:   time.Hour,
		MinTWA:          30,
		MaxSOGWindRatio: 0.8,
	}
}

// OptionsFromConfig converts the polar configuration section.
func OptionsFromConfig(cfg config.PolarConfig) Options {
	return Options{
		TWAIncrement:    cfg.TWAIncrement,
		TWSIncrement:    cfg.TWSIncrement,
		BinSize:         cfg.BinSize,
		Percentile:      cfg.Percentile,
		MinSamples:      cfg.MinSamples,
		EdgeExclusion:   cfg.EdgeExclusion.Std(),
		MinTWA:          cfg.MinTWA,
		MaxSOGWindRatio: cfg.MaxSOGWindRatio,
	}
}

// BuildPoints emits one polar point per sailing point across all voyages.
func BuildPoints(voyages []model.Voyage, opts Options) model.PolarDataset {
	ds := model.PolarDataset{Points: make([]model.PolarPoint, 0)}
	for i := range voyages {
		for j := range voyages[i].Points {
			p := &voyages[i].Points[j]
			if p.Activity != model.ActivitySailing {
				continue
			}
			ds.Points = append(ds.Points, PointFor(&p.Entry, opts))
		}
	}
	return ds
}

// PointFor derives the polar point of a single entry.
//
// TWS is the true wind speed when recorded, otherwise the plain wind speed,
// which some instruments log as apparent. The resulting AWS is then only an
// approximation.
func PointFor(e *model.LogEntry, opts Options) model.PolarPoint {
	var pt model.PolarPoint

	relative, hasRelative := relativeWind(e)
	if hasRelative {
		twa := FoldTWA(geo.RoundToIncrement(geo.NormalizeAngle360(relative), opts.TWAIncrement, true))
		pt.TWA = &twa
	}

	if stw, ok := e.STW(); ok {
		v := geo.Round2(stw)
		pt.STW = &v
	}
	sog, hasSOG := e.SOG()
	if hasSOG {
		v := geo.Round2(sog)
		pt.SOG = &v
	}

	tws, hasTWS := e.TrueWindSpeed()
	if hasTWS {
		v := geo.RoundToIncrement(tws, opts.TWSIncrement, false)
		pt.TWS = &v
	}

	if hasRelative && hasSOG && hasTWS {
		aws := geo.Round2(ApparentWindSpeed(relative, sog, tws))
		pt.AWS = &aws
	}
	return pt
}

// relativeWind returns the true wind direction relative to the course, in (-180, 180].
func relativeWind(e *model.LogEntry) (float64, bool) {
	course, okCourse := e.CourseOrHeading()
	dir, okDir := e.TrueWindDirection()
	if !okCourse || !okDir {
		return 0, false
	}
	return geo.NormalizeRelativeAngle(dir - course), true
}

// FoldTWA folds a [0, 360) angle onto the starboard side, [0, 180].
func FoldTWA(twa float64) float64 {
	if twa > 180 {
		return 360 - twa
	}
	return twa
}

// ApparentWindSpeed solves the wind triangle with the law of cosines.
func ApparentWindSpeed(relativeDeg, sog, tws float64) float64 {
	angle := (180 - math.Min(math.Abs(relativeDeg), 180)) * math.Pi / 180
	sq := tws*tws + sog*sog - 2*tws*sog*math.Cos(angle)
	return math.Sqrt(math.Max(0, sq))
}
