package config

import "github.com/hyp3rd/ewrap/pkg/ewrap"

// implement the validatable interface.
var _ validatable = (*SafetyConfig)(nil)

// SafetyConfig holds the three-tier graduated authorization flags that gate
// the safety policy engine (C3, spec.md §4.3). ReadOnlyMode, when true,
// takes precedence: the other two flags are ignored (spec.md §3 invariant).
type SafetyConfig struct {
	ReadOnlyMode       bool `mapstructure:"read_only_mode"`
	AllowDestructive   bool `mapstructure:"allow_destructive"`
	AllowSchemaChanges bool `mapstructure:"allow_schema_changes"`
}

// IsSecure reports whether the configuration is at its safest posture — the
// SECURE banner spec.md §4.8 prints at startup when every flag defaults to
// safe.
func (c *SafetyConfig) IsSecure() bool {
	return c.ReadOnlyMode && !c.AllowDestructive && !c.AllowSchemaChanges
}

// RelaxedFlags lists which flags are relaxed from the secure default, for
// the UNSAFE startup banner (spec.md §4.8).
func (c *SafetyConfig) RelaxedFlags() []string {
	var relaxed []string

	if !c.ReadOnlyMode {
		relaxed = append(relaxed, "readOnlyMode=false")
	}

	if c.AllowDestructive {
		relaxed = append(relaxed, "allowDestructive=true")
	}

	if c.AllowSchemaChanges {
		relaxed = append(relaxed, "allowSchemaChanges=true")
	}

	return relaxed
}

// Validate is a no-op: every bool value is valid. The method exists so
// SafetyConfig satisfies validatable alongside its sibling config structs.
func (c *SafetyConfig) Validate(_ *ewrap.ErrorGroup) {}
