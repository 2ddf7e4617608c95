package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Number is an optional finite float recorded by an instrument.
// The zero value means "unknown", which is distinct from a recorded 0.
type Number struct {
	v  float64
	ok bool
}

// Num returns a known Number. Non-finite values yield an unknown Number.
func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{v: v, ok: true}
}

// Get returns the value and whether it is known.
func (n Number) Get() (float64, bool) {
	return n.v, n.ok
}

// Or returns the value, or def when unknown.
func (n Number) Or(def float64) float64 {
	if !n.ok {
		return def
	}
	return n.v
}

// Ptr returns a pointer to the value, or nil when unknown.
func (n Number) Ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

// IsZero reports whether the value is unknown. Used by omitempty/omitzero.
func (n Number) IsZero() bool {
	return !n.ok
}

func parseNumber(s string) Number {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Number{}
	}
	return Num(f)
}

// UnmarshalYAML accepts numbers and numeric strings. Anything else decodes as unknown.
func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	*n = Number{}
	if value.Kind != yaml.ScalarNode || value.Tag == "!!null" || value.Tag == "!!bool" {
		return nil
	}
	*n = parseNumber(value.Value)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (n Number) MarshalYAML() (interface{}, error) {
	if !n.ok {
		return nil, nil
	}
	return n.v, nil
}

// UnmarshalJSON accepts numbers and numeric strings. Anything else decodes as unknown.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = parseNumber(s)
		return nil
	}
	*n = parseNumber(string(data))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.v, 'f', -1, 64)), nil
}
