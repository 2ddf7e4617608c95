package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"voyagelog/pkg/store"
)

// Settings that may be overridden at runtime. Overrides live in the state
// store and take precedence over the config file until deleted.
const (
	KeyMoveThreshold       = "classifier.move_threshold"
	KeyNearAnchorThreshold = "classifier.near_anchor_threshold"
	KeyGapDuration         = "classifier.gap_duration"
	KeyGapSOG              = "classifier.gap_sog"
	KeyLowWind             = "classifier.low_wind"
	KeyFastSpeed           = "classifier.fast_speed"
	KeyMaxDayGap           = "voyage.max_day_gap"
	KeyPercentile          = "polar.percentile"
	KeyMergeCourseChanges  = "logbook.merge_course_changes"
)

type override struct {
	validate func(string) error
	apply    func(*Config, string)
}

func distanceOverride(field func(*Config) *Distance) override {
	return override{
		validate: func(v string) error { _, err := ParseDistance(v); return err },
		apply: func(c *Config, v string) {
			if m, err := ParseDistance(v); err == nil {
				*field(c) = Distance(m)
			}
		},
	}
}

func speedOverride(field func(*Config) *Speed) override {
	return override{
		validate: func(v string) error { _, err := ParseSpeed(v); return err },
		apply: func(c *Config, v string) {
			if kn, err := ParseSpeed(v); err == nil {
				*field(c) = Speed(kn)
			}
		},
	}
}

func durationOverride(field func(*Config) *Duration) override {
	return override{
		validate: func(v string) error { _, err := ParseDuration(v); return err },
		apply: func(c *Config, v string) {
			if d, err := ParseDuration(v); err == nil {
				*field(c) = Duration(d)
			}
		},
	}
}

var overrides = map[string]override{
	KeyMoveThreshold:       distanceOverride(func(c *Config) *Distance { return &c.Classifier.MoveThreshold }),
	KeyNearAnchorThreshold: distanceOverride(func(c *Config) *Distance { return &c.Classifier.NearAnchorThreshold }),
	KeyGapDuration:         durationOverride(func(c *Config) *Duration { return &c.Classifier.GapDuration }),
	KeyGapSOG:              speedOverride(func(c *Config) *Speed { return &c.Classifier.GapSOG }),
	KeyLowWind:             speedOverride(func(c *Config) *Speed { return &c.Classifier.LowWind }),
	KeyFastSpeed:           speedOverride(func(c *Config) *Speed { return &c.Classifier.FastSpeed }),
	KeyMaxDayGap:           durationOverride(func(c *Config) *Duration { return &c.Voyage.MaxDayGap }),
	KeyPercentile: {
		validate: func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			if f < 0 || f > 100 {
				return fmt.Errorf("percentile %v out of range [0, 100]", f)
			}
			return nil
		},
		apply: func(c *Config, v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 100 {
				c.Polar.Percentile = f
			}
		},
	},
	KeyMergeCourseChanges: {
		validate: func(v string) error { _, err := strconv.ParseBool(v); return err },
		apply: func(c *Config, v string) {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Logbook.MergeCourseChanges = b
			}
		},
	},
}

// OverrideKeys lists the settings that can be overridden, sorted.
func OverrideKeys() []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateOverride checks that key is overridable and val parses for it.
func ValidateOverride(key, val string) error {
	o, ok := overrides[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := o.validate(val); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// Provider gives access to the configuration in effect.
type Provider interface {
	// AppConfig returns the configuration as loaded from file.
	AppConfig() *Config
	// Effective returns a copy of the configuration with runtime overrides applied.
	Effective(ctx context.Context) *Config
	// Overrides returns the overrides currently set.
	Overrides(ctx context.Context) map[string]string
	SetOverride(ctx context.Context, key, val string) error
	ResetOverride(ctx context.Context, key string) error
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. st may be nil.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) Effective(ctx context.Context) *Config {
	c := *p.base
	for key, val := range p.Overrides(ctx) {
		overrides[key].apply(&c, val)
	}
	return &c
}

func (p *UnifiedProvider) Overrides(ctx context.Context) map[string]string {
	out := make(map[string]string)
	if p.store == nil {
		return out
	}
	for key := range overrides {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			out[key] = val
		}
	}
	return out
}

// SetOverride validates and stores an override.
func (p *UnifiedProvider) SetOverride(ctx context.Context, key, val string) error {
	if err := ValidateOverride(key, val); err != nil {
		return err
	}
	if p.store == nil {
		return errors.New("no state store configured")
	}
	return p.store.SetState(ctx, key, val)
}

// ResetOverride removes an override so the file value applies again.
func (p *UnifiedProvider) ResetOverride(ctx context.Context, key string) error {
	if _, ok := overrides[key]; !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if p.store == nil {
		return nil
	}
	return p.store.DeleteState(ctx, key)
}
