package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support extended units (d, w) in YAML.
type Duration time.Duration

// Common durations.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// NauticalMile is one nautical mile in meters.
const NauticalMile = 1852.0

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ParseDuration parses a duration string. On top of time.ParseDuration it
// accepts d (day) and w (week), also in composites such as "2d2h".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.ContainsAny(s, "dw") {
		return parseExtendedDuration(s)
	}
	return time.ParseDuration(s)
}

var unitMap = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"w":  Week,
}

var durationPartRe = regexp.MustCompile(`([0-9.]+)([a-zµ]+)`)

func parseExtendedDuration(s string) (time.Duration, error) {
	if durationPartRe.ReplaceAllString(s, "") != "" {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	matches := durationPartRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}

	var total time.Duration
	for _, match := range matches {
		val, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration: %s", match[1])
		}
		base, ok := unitMap[match[2]]
		if !ok {
			return 0, fmt.Errorf("unknown unit: %s", match[2])
		}
		total += time.Duration(val * float64(base))
	}
	return total, nil
}

// Distance represents a distance in meters.
type Distance float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" || value.Tag == "!!float" {
		var f float64
		if err := value.Decode(&f); err != nil {
			return err
		}
		*d = Distance(f)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dist, err := ParseDistance(s)
	if err != nil {
		return err
	}
	*d = Distance(dist)
	return nil
}

// MarshalYAML writes nautical miles, the unit the classifier thinks in.
func (d Distance) MarshalYAML() (interface{}, error) {
	return strconv.FormatFloat(d.NauticalMiles(), 'f', -1, 64) + "nm", nil
}

// NauticalMiles returns the distance in nautical miles.
func (d Distance) NauticalMiles() float64 {
	return float64(d) / NauticalMile
}

// ParseDistance parses "250m", "1.5km" or "0.25nm" into meters. Unitless values are meters.
func ParseDistance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var mult float64
	var numStr string

	switch {
	case strings.HasSuffix(s, "km"):
		mult = 1000
		numStr = strings.TrimSuffix(s, "km")
	case strings.HasSuffix(s, "nm"):
		mult = NauticalMile
		numStr = strings.TrimSuffix(s, "nm")
	case strings.HasSuffix(s, "m"):
		mult = 1
		numStr = strings.TrimSuffix(s, "m")
	default:
		mult = 1
		numStr = s
	}

	val, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distance number: %w", err)
	}
	return val * mult, nil
}

// Speed represents a speed in knots.
type Speed float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (sp *Speed) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" || value.Tag == "!!float" {
		var f float64
		if err := value.Decode(&f); err != nil {
			return err
		}
		*sp = Speed(f)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseSpeed(s)
	if err != nil {
		return err
	}
	*sp = Speed(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (sp Speed) MarshalYAML() (interface{}, error) {
	return strconv.FormatFloat(float64(sp), 'f', -1, 64) + "kn", nil
}

// Knots returns the speed as a plain float.
func (sp Speed) Knots() float64 {
	return float64(sp)
}

// ParseSpeed parses "5kn", "5kt", "2.5m/s" or "10km/h" into knots. Unitless values are knots.
func ParseSpeed(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var mult float64
	var numStr string

	switch {
	case strings.HasSuffix(s, "km/h"):
		mult = 1000 / NauticalMile
		numStr = strings.TrimSuffix(s, "km/h")
	case strings.HasSuffix(s, "m/s"):
		mult = 3600 / NauticalMile
		numStr = strings.TrimSuffix(s, "m/s")
	case strings.HasSuffix(s, "kn"):
		mult = 1
		numStr = strings.TrimSuffix(s, "kn")
	case strings.HasSuffix(s, "kt"):
		mult = 1
		numStr = strings.TrimSuffix(s, "kt")
	default:
		mult = 1
		numStr = s
	}

	val, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid speed number: %w", err)
	}
	return val * mult, nil
}
