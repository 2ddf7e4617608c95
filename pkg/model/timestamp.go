package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CanonicalLayout is the timestamp format used in every exported dataset.
const CanonicalLayout = "2006-01-02T15:04:05.000Z"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp is an optional point in time. The zero value means "no parsable timestamp".
type Timestamp struct {
	t  time.Time
	ok bool
}

// NewTimestamp returns a known timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC(), ok: true}
}

// ParseTimestamp parses the layouts accepted in daily log files.
// Naive values are interpreted as UTC. Unparsable input yields an unknown Timestamp.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t)
		}
	}
	return Timestamp{}
}

// Time returns the time and whether it is known.
func (ts Timestamp) Time() (time.Time, bool) {
	return ts.t, ts.ok
}

// Valid reports whether the timestamp is known.
func (ts Timestamp) Valid() bool {
	return ts.ok
}

// IsZero reports whether the timestamp is unknown.
func (ts Timestamp) IsZero() bool {
	return !ts.ok
}

// String returns the canonical representation, or "" when unknown.
func (ts Timestamp) String() string {
	if !ts.ok {
		return ""
	}
	return ts.t.UTC().Format(CanonicalLayout)
}

// Date returns the UTC calendar date (midnight) of the timestamp.
func (ts Timestamp) Date() (time.Time, bool) {
	if !ts.ok {
		return time.Time{}, false
	}
	u := ts.t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC), true
}

// UnmarshalYAML accepts YAML timestamps, the string layouts above and epoch milliseconds.
func (ts *Timestamp) UnmarshalYAML(value *yaml.Node) error {
	*ts = Timestamp{}
	if value.Kind != yaml.ScalarNode {
		return nil
	}
	if value.Tag == "!!int" {
		if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
			*ts = NewTimestamp(time.UnixMilli(ms))
		}
		return nil
	}
	*ts = ParseTimestamp(value.Value)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (ts Timestamp) MarshalYAML() (interface{}, error) {
	if !ts.ok {
		return nil, nil
	}
	return ts.t.UTC().Format(time.RFC3339Nano), nil
}

// UnmarshalJSON accepts strings in the layouts above, epoch milliseconds or null.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ts = ParseTimestamp(s)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		*ts = NewTimestamp(time.UnixMilli(ms))
	}
	return nil
}

// MarshalJSON writes the canonical string, or null when unknown.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.ok {
		return []byte("null"), nil
	}
	return json.Marshal(ts.String())
}
