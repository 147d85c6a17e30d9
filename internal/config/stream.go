package config

import "github.com/hyp3rd/ewrap/pkg/ewrap"

// implement the validatable interface.
var _ validatable = (*StreamConfig)(nil)

// StreamConfig tunes large-result handling for tools like get_table_data and
// export_table_csv (spec.md §6).
type StreamConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	BatchRows           int  `mapstructure:"batch_rows"`
	MemLimitMB          int  `mapstructure:"mem_limit_mb"`
	ResponseLimitBytes  int  `mapstructure:"response_limit_bytes"`
}

// Validate checks the StreamConfig's invariants (spec.md §3).
func (c *StreamConfig) Validate(eg *ewrap.ErrorGroup) {
	if c.BatchRows < 1 {
		eg.Add(ewrap.New("stream batch_rows must be at least 1"))
	}

	if c.MemLimitMB < 1 {
		eg.Add(ewrap.New("stream mem_limit_mb must be at least 1"))
	}

	if c.ResponseLimitBytes < 1 {
		eg.Add(ewrap.New("stream response_limit_bytes must be at least 1"))
	}
}
