// Package config loads the toolkit-wide tunables shared by every core
// package: the demo CLI and any embedding caller both start from
// DefaultConfig and override only what they need.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Engine selects which rewrite driver a caller gets by default when it
// doesn't build one explicitly.
type Engine string

const (
	EngineInnermost Engine = "innermost"
	EngineSabre     Engine = "sabre"
)

// Config holds the tunables spec.md leaves as implementation choices: the
// Term Store's GC high-water mark, the step budget for recursively
// normalizing a rule's side conditions (spec.md §4.9/§9), and which rewrite
// engine a caller gets by default.
type Config struct {
	// GCHighWaterMark is the live-node count at which a caller may choose to
	// run the Term Store's GC(); it is advisory only. The store never reads
	// it: its own automatic collection uses a fixed internal threshold.
	GCHighWaterMark int `toml:"gc_high_water_mark"`

	// ConditionStepLimit is a step budget for side-condition normalization.
	// It is loaded, defaulted and validated here, but no rewrite engine reads
	// it: checkAnnouncement's recursive condition normalization is not
	// bounded by it and does not stop a non-terminating condition rule.
	ConditionStepLimit int `toml:"condition_step_limit"`

	// Engine is the rewrite driver used when a caller asks for "the
	// default" rewriter instead of constructing one of
	// engine.InnermostRewriter / engine.SabreRewriter directly.
	Engine Engine `toml:"engine"`
}

// DefaultConfig returns the toolkit's built-in defaults.
func DefaultConfig() Config {
	return Config{
		GCHighWaterMark:    1_000_000,
		ConditionStepLimit: 10_000,
		Engine:             EngineSabre,
	}
}

// FillDefaults returns a copy of cfg with every zero-valued field replaced by
// DefaultConfig's value.
func (cfg Config) FillDefaults() Config {
	filled := cfg
	def := DefaultConfig()
	if filled.GCHighWaterMark <= 0 {
		filled.GCHighWaterMark = def.GCHighWaterMark
	}
	if filled.ConditionStepLimit <= 0 {
		filled.ConditionStepLimit = def.ConditionStepLimit
	}
	if filled.Engine == "" {
		filled.Engine = def.Engine
	}
	return filled
}

// Validate returns an error if cfg has invalid field values. Call it after
// FillDefaults if defaults are meant to fill in unset fields.
func (cfg Config) Validate() error {
	if cfg.GCHighWaterMark <= 0 {
		return fmt.Errorf("gc_high_water_mark: must be positive, got %d", cfg.GCHighWaterMark)
	}
	if cfg.ConditionStepLimit <= 0 {
		return fmt.Errorf("condition_step_limit: must be positive, got %d", cfg.ConditionStepLimit)
	}
	switch cfg.Engine {
	case EngineInnermost, EngineSabre:
	default:
		return fmt.Errorf("engine: must be %q or %q, got %q", EngineInnermost, EngineSabre, cfg.Engine)
	}
	return nil
}

// Load reads and parses a TOML config file at path, filling unset fields
// with DefaultConfig's values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg.FillDefaults(), nil
}
