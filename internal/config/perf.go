package config

import (
	"time"

	"github.com/hyp3rd/ewrap/pkg/ewrap"
)

// implement the validatable interface.
var _ validatable = (*PerfConfig)(nil)

// PerfConfig tunes the performance observatory (C4, spec.md §4.4).
type PerfConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MaxHistory     int     `mapstructure:"max_history"`
	SlowQueryMs    int     `mapstructure:"slow_query_ms"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
	TrackPool      bool    `mapstructure:"track_pool"`
}

// SlowQueryThreshold returns SlowQueryMs as a time.Duration.
func (c *PerfConfig) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMs) * time.Millisecond
}

// Validate checks the PerfConfig's invariants (spec.md §3).
func (c *PerfConfig) Validate(eg *ewrap.ErrorGroup) {
	if c.MaxHistory < 1 {
		eg.Add(ewrap.New("perf max_history must be at least 1"))
	}

	if c.SlowQueryMs < 0 {
		eg.Add(ewrap.New("perf slow_query_ms must be non-negative"))
	}

	if c.SamplingRate < 0.0 || c.SamplingRate > 1.0 { //nolint:mnd
		eg.Add(ewrap.New("perf sampling_rate must be between 0.0 and 1.0").
			WithMetadata("sampling_rate", c.SamplingRate))
	}
}
