package model

import (
	"gopkg.in/yaml.v3"
)

// Position is a recorded lon/lat pair.
type Position struct {
	Longitude Number `yaml:"longitude" json:"longitude"`
	Latitude  Number `yaml:"latitude" json:"latitude"`
}

// UnmarshalYAML accepts both longitude/latitude and lon/lat keys.
// A non-mapping node decodes as an unknown position.
func (p *Position) UnmarshalYAML(value *yaml.Node) error {
	*p = Position{}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	var raw struct {
		Longitude Number `yaml:"longitude"`
		Latitude  Number `yaml:"latitude"`
		Lon       Number `yaml:"lon"`
		Lat       Number `yaml:"lat"`
	}
	if err := value.Decode(&raw); err != nil {
		return nil
	}
	p.Longitude = raw.Longitude
	if p.Longitude.IsZero() {
		p.Longitude = raw.Lon
	}
	p.Latitude = raw.Latitude
	if p.Latitude.IsZero() {
		p.Latitude = raw.Lat
	}
	return nil
}

// Speed holds speed over ground and through water in knots.
type Speed struct {
	SOG Number `yaml:"sog,omitempty" json:"sog,omitzero"`
	STW Number `yaml:"stw,omitempty" json:"stw,omitzero"`
}

// UnmarshalYAML decodes a non-mapping node as unknown speeds.
func (s *Speed) UnmarshalYAML(value *yaml.Node) error {
	*s = Speed{}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	type plain Speed
	var raw plain
	_ = value.Decode(&raw)
	*s = Speed(raw)
	return nil
}

// Wind holds wind observations. Speeds in knots, directions in degrees.
type Wind struct {
	Speed         Number `yaml:"speed,omitempty" json:"speed,omitzero"`
	SpeedTrue     Number `yaml:"speedTrue,omitempty" json:"speedTrue,omitzero"`
	SpeedApparent Number `yaml:"speedApparent,omitempty" json:"speedApparent,omitzero"`
	Direction     Number `yaml:"direction,omitempty" json:"direction,omitzero"`
	DirectionTrue Number `yaml:"directionTrue,omitempty" json:"directionTrue,omitzero"`
}

// UnmarshalYAML decodes a non-mapping node as unknown wind.
func (w *Wind) UnmarshalYAML(value *yaml.Node) error {
	*w = Wind{}
	if value.Kind != yaml.MappingNode {
		return nil
	}
	type plain Wind
	var raw plain
	_ = value.Decode(&raw)
	*w = Wind(raw)
	return nil
}

// LogEntry is a single logbook record. Only Datetime is expected; every other
// field may be missing depending on the instrument that produced it.
type LogEntry struct {
	Datetime Timestamp `yaml:"datetime" json:"datetime"`
	Text     string    `yaml:"text,omitempty" json:"text,omitempty"`
	Note     string    `yaml:"note,omitempty" json:"note,omitempty"`
	Position *Position `yaml:"position,omitempty" json:"position,omitempty"`
	Speed    *Speed    `yaml:"speed,omitempty" json:"speed,omitempty"`
	Wind     *Wind     `yaml:"wind,omitempty" json:"wind,omitempty"`
	Course   Number    `yaml:"course,omitempty" json:"course,omitzero"`
	Heading  Number    `yaml:"heading,omitempty" json:"heading,omitzero"`
	MaxSpeed Number    `yaml:"maxSpeed,omitempty" json:"maxSpeed,omitzero"`
	MaxWind  Number    `yaml:"maxWind,omitempty" json:"maxWind,omitzero"`

	// Derived by the activity classifier. Never read from log files.
	Activity           Activity `yaml:"-" json:"activity,omitempty"`
	DistanceFromAnchor *float64 `yaml:"-" json:"distanceFromAnchor,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e LogEntry) Clone() LogEntry {
	c := e
	if e.Position != nil {
		p := *e.Position
		c.Position = &p
	}
	if e.Speed != nil {
		s := *e.Speed
		c.Speed = &s
	}
	if e.Wind != nil {
		w := *e.Wind
		c.Wind = &w
	}
	if e.DistanceFromAnchor != nil {
		d := *e.DistanceFromAnchor
		c.DistanceFromAnchor = &d
	}
	return c
}
