package classifier

import (
	"time"

	"voyagelog/pkg/config"
)

// Thresholds tunes the activity heuristics. Distances are nautical miles, speeds knots.
type Thresholds struct {
	MoveNM       float64       // path length since the last anchor still counted as anchored
	NearAnchorNM float64       // moving points closer than this to the anchor are motoring
	Gap          time.Duration // a slow point followed by a longer silence is anchored
	GapSOG       float64
	LowWind      float64
	FastSpeed    float64
}

// DefaultThresholds returns the thresholds the logbook has always been classified with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MoveNM:       0.25,
		NearAnchorNM: 0.5,
		Gap:          4 * time.Hour,
		GapSOG:       1,
		LowWind:      7,
		FastSpeed:    4,
	}
}

// FromConfig converts the configured thresholds.
func FromConfig(cfg config.ClassifierConfig) Thresholds {
	return Thresholds{
		MoveNM:       cfg.MoveThreshold.NauticalMiles(),
		NearAnchorNM: cfg.NearAnchorThreshold.NauticalMiles(),
		Gap:          cfg.GapDuration.Std(),
		GapSOG:       cfg.GapSOG.Knots(),
		LowWind:      cfg.LowWind.Knots(),
		FastSpeed:    cfg.FastSpeed.Knots(),
	}
}
