package polar

import (
	"math"
	"sort"

	"voyagelog/pkg/model"
)

// Band is a true wind speed range with the nominal speed it is tabulated at.
type Band struct {
	Label   string
	Lower   float64 // inclusive
	Upper   float64 // exclusive, +Inf for the open band
	Nominal float64
}

// Bands are the wind speed ranges curves are drawn for, lightest first.
var Bands = []Band{
	{Label: "2.5-7.5 kn", Lower: 2.5, Upper: 7.5, Nominal: 5},
	{Label: "7.5-12.5 kn", Lower: 7.5, Upper: 12.5, Nominal: 10},
	{Label: "12.5-17.5 kn", Lower: 12.5, Upper: 17.5, Nominal: 15},
	{Label: ">17.5 kn", Lower: 17.5, Upper: math.Inf(1), Nominal: 20},
}

// BandIndex returns the index in Bands of the band containing ws.
func BandIndex(ws float64) (int, bool) {
	for i, b := range Bands {
		if ws >= b.Lower && ws < b.Upper {
			return i, true
		}
	}
	return 0, false
}

// Sample is one boat speed observation at a true wind angle in degrees [0, 360).
type Sample struct {
	Angle float64
	STW   float64
}

// CurvePoint is one vertex of an aggregated polar curve.
type CurvePoint struct {
	Angle float64 // degrees
	STW   float64
}

// Curve is the aggregated boat speed per angle for one wind band.
type Curve struct {
	Band    Band
	Samples []Sample
	Points  []CurvePoint
}

// TrueWindAngle returns the unsigned angle between course and wind direction, in [0, 180].
func TrueWindAngle(course, windDir float64) float64 {
	a := math.Mod(windDir-course, 360)
	if a < 0 {
		a += 360
	}
	if a > 180 {
		a = 360 - a
	}
	return a
}

// CollectSamples picks clean sailing samples from the voyages and sorts them
// into wind bands. The result has one slice per entry in Bands.
//
// Points close to the start or end of a voyage are skipped, as are points
// where the boat moved implausibly fast for the wind or pointed too high.
// Every sample is mirrored onto the port side so curves are drawn on both.
func CollectSamples(voyages []model.Voyage, opts Options) [][]Sample {
	byBand := make([][]Sample, len(Bands))
	for i := range voyages {
		v := &voyages[i]
		start, okStart := v.StartTime.Time()
		end, okEnd := v.EndTime.Time()
		if !okStart || !okEnd {
			continue
		}

		for j := range v.Points {
			p := &v.Points[j]
			if p.Activity != model.ActivitySailing {
				continue
			}
			e := &p.Entry
			at, ok := e.Time()
			if !ok || at.Sub(start) < opts.EdgeExclusion || end.Sub(at) < opts.EdgeExclusion {
				continue
			}

			stw, okSTW := e.STW()
			sog, okSOG := e.SOG()
			ws, okWS := e.WindSpeed()
			dir, okDir := e.WindDirection()
			course, okCourse := e.CourseOrHeading()
			if !okSTW || !okSOG || !okWS || !okDir || !okCourse {
				continue
			}
			if ws <= 0 || sog > opts.MaxSOGWindRatio*ws {
				continue
			}
			band, ok := BandIndex(ws)
			if !ok {
				continue
			}
			angle := TrueWindAngle(course, dir)
			if angle < opts.MinTWA {
				continue
			}

			byBand[band] = append(byBand[band], Sample{Angle: angle, STW: stw})
			if angle > 0 && angle < 180 {
				if mirrored := 360 - angle; mirrored <= 360-opts.MinTWA {
					byBand[band] = append(byBand[band], Sample{Angle: mirrored, STW: stw})
				}
			}
		}
	}
	return byBand
}

// bucketCenter returns the bin an angle falls in, bins centred on multiples of binSize.
func bucketCenter(angle float64, binSize int) int {
	b := float64(binSize)
	return int(math.Floor(math.Mod(angle+b/2, 360)/b) * b)
}

// Aggregate turns the samples of one band into a closed curve from 0 to 360 degrees.
// Each bin contributes the configured percentile of its outlier-free speeds
// if enough samples remain.
func Aggregate(samples []Sample, opts Options) []CurvePoint {
	buckets := make(map[int][]float64)
	for _, s := range samples {
		c := bucketCenter(s.Angle, opts.BinSize)
		buckets[c] = append(buckets[c], s.STW)
	}
	centers := make([]int, 0, len(buckets))
	for c := range buckets {
		centers = append(centers, c)
	}
	sort.Ints(centers)

	points := make([]CurvePoint, 0, len(centers)+2)
	for _, c := range centers {
		kept := RemoveOutliers(buckets[c])
		if len(kept) < opts.MinSamples {
			continue
		}
		stw, ok := Percentile(kept, opts.Percentile)
		if !ok {
			continue
		}
		points = append(points, CurvePoint{Angle: float64(c), STW: stw})
	}

	if len(points) == 0 {
		return []CurvePoint{{Angle: 0}, {Angle: 360}}
	}
	if points[0].Angle > 0 {
		points = append([]CurvePoint{{Angle: 0}}, points...)
	} else {
		points[0] = CurvePoint{Angle: 0}
	}
	if points[len(points)-1].Angle < 360 {
		points = append(points, CurvePoint{Angle: 360})
	} else {
		points[len(points)-1] = CurvePoint{Angle: 360}
	}
	return smooth(points, 2)
}

// smooth replaces each inner vertex by the mean of its +-window neighbours.
func smooth(points []CurvePoint, window int) []CurvePoint {
	if len(points) <= 3 || window <= 0 {
		return points
	}
	out := make([]CurvePoint, len(points))
	n := len(points)
	for i, p := range points {
		if i == 0 || i == n-1 {
			out[i] = p
			continue
		}
		lo := max(0, i-window)
		hi := min(n, i+window+1)
		var sum float64
		for _, q := range points[lo:hi] {
			sum += q.STW
		}
		out[i] = CurvePoint{Angle: p.Angle, STW: sum / float64(hi-lo)}
	}
	return out
}

// Curves collects samples and aggregates one curve per band.
// A band without samples yields a curve without points.
func Curves(voyages []model.Voyage, opts Options) []Curve {
	byBand := CollectSamples(voyages, opts)
	curves := make([]Curve, len(Bands))
	for i, b := range Bands {
		curves[i] = Curve{Band: b, Samples: byBand[i]}
		if len(byBand[i]) > 0 {
			curves[i].Points = Aggregate(byBand[i], opts)
		}
	}
	return curves
}

// SampleCount returns the total number of samples across curves.
func SampleCount(curves []Curve) int {
	n := 0
	for _, c := range curves {
		n += len(c.Samples)
	}
	return n
}
