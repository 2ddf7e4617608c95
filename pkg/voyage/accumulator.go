package voyage

import (
	"time"

	"voyagelog/pkg/classifier"
	"voyagelog/pkg/geo"
	"voyagelog/pkg/model"
)

// Accumulator collects the entries of one voyage and its running statistics.
// It is owned by a single goroutine.
type Accumulator struct {
	start, end model.Timestamp
	points     []model.VoyagePoint

	distance  float64
	prevCoord *geo.Point

	maxSpeed      float64
	maxSpeedCoord *[2]float64
	speedSum      float64
	speedCount    int

	maxWind      float64
	windSum      float64
	windCount    int
	windHeadings []float64

	total, stopped time.Duration
	stopActive     bool
	lastTime       *time.Time
	entries        int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{points: make([]model.VoyagePoint, 0)}
}

// Len returns the number of entries added so far.
func (a *Accumulator) Len() int {
	return a.entries
}

// Add folds one entry into the voyage. Entries are expected in timestamp order.
func (a *Accumulator) Add(e model.LogEntry) {
	a.entries++

	if t, ok := e.Time(); ok {
		if !a.start.Valid() {
			a.start = e.Datetime
		}
		a.end = e.Datetime
		if a.lastTime != nil {
			if d := t.Sub(*a.lastTime); d > 0 {
				a.total += d
				if a.stopActive {
					a.stopped += d
				}
			}
		}
		a.lastTime = &t
	}

	switch {
	case e.IsStopped():
		a.stopActive = true
	case e.IsSailing():
		a.stopActive = false
	}

	coord, hasPos := e.Coord()
	if !hasPos {
		return
	}

	a.points = append(a.points, model.NewVoyagePoint(e))
	if a.prevCoord != nil {
		a.distance += geo.DistanceNM(*a.prevCoord, coord)
	}
	c := coord
	a.prevCoord = &c

	if sp, ok := e.SpeedSample(); ok {
		if a.speedCount == 0 || sp > a.maxSpeed {
			a.maxSpeed = sp
			a.maxSpeedCoord = &[2]float64{coord.Lon, coord.Lat}
		}
		a.speedSum += sp
		a.speedCount++
	}

	if ws, ok := e.WindSpeed(); ok {
		if a.windCount == 0 || ws > a.maxWind {
			a.maxWind = ws
		}
		a.windSum += ws
		a.windCount++
		if dir, ok := e.WindDirection(); ok {
			a.windHeadings = append(a.windHeadings, dir)
		}
	}
}

// Finalize classifies the points, marks stop gaps and computes the summary.
// The accumulator must not be used afterwards.
func (a *Accumulator) Finalize(th classifier.Thresholds) model.Voyage {
	classifier.Classify(a.points, th)
	classifier.MarkStopGaps(a.points)

	v := model.Voyage{
		StartTime:     a.start,
		EndTime:       a.end,
		Distance:      geo.Round1(a.distance),
		MaxSpeed:      a.maxSpeed,
		MaxWind:       a.maxWind,
		MaxSpeedCoord: a.maxSpeedCoord,
		Points:        a.points,
	}

	moving := a.total - a.stopped
	if moving < 0 {
		moving = 0
	}
	switch {
	case moving > 0:
		v.AvgSpeed = a.distance / moving.Hours()
	case a.speedCount > 0:
		v.AvgSpeed = a.speedSum / float64(a.speedCount)
	}

	if a.windCount > 0 {
		v.AvgWindSpeed = a.windSum / float64(a.windCount)
	}
	if mean, ok := geo.CircularMean(a.windHeadings); ok {
		v.AvgWindHeading = &mean
	}
	return v
}
