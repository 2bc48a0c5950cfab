// Package config loads the world tuning file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the tuning knob set for the world core. Durations are expressed
// in milliseconds in the YAML file.
type Config struct {
	ChunkWidth  int `yaml:"chunk_width"`
	ChunkHeight int `yaml:"chunk_height"`
	ChunkDepth  int `yaml:"chunk_depth"`

	ViewDistX int `yaml:"view_dist_x"` // visible window extent in chunks
	ViewDistZ int `yaml:"view_dist_z"`

	UpdateBudget  int `yaml:"update_budget"`  // chunk updates per loop tick
	CacheCapacity int `yaml:"cache_capacity"` // live chunks before eviction

	VisibleIntervalMs int `yaml:"visible_interval_ms"` // window recompute cadence
	DaytimeIntervalMs int `yaml:"daytime_interval_ms"` // one hour per interval
	ReplantIntervalMs int `yaml:"replant_interval_ms"` // environmental tick cadence
}

// Defaults returns the stock tuning.
func Defaults() Config {
	return Config{
		ChunkWidth:        16,
		ChunkHeight:       128,
		ChunkDepth:        16,
		ViewDistX:         16,
		ViewDistZ:         16,
		UpdateBudget:      16,
		CacheCapacity:     1024,
		VisibleIntervalMs: 1000,
		DaytimeIntervalMs: 30000,
		ReplantIntervalMs: 100,
	}
}

// Load reads tuning from a YAML file; missing fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("tuning.yaml: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the coordinate mapper cannot serve.
func (c Config) Validate() error {
	if c.ChunkWidth <= 0 || c.ChunkHeight <= 0 || c.ChunkDepth <= 0 {
		return fmt.Errorf("chunk dimensions must be positive, got %dx%dx%d",
			c.ChunkWidth, c.ChunkHeight, c.ChunkDepth)
	}
	if c.ViewDistX <= 0 || c.ViewDistZ <= 0 {
		return fmt.Errorf("view distances must be positive, got %dx%d", c.ViewDistX, c.ViewDistZ)
	}
	if c.VisibleIntervalMs <= 0 || c.DaytimeIntervalMs <= 0 || c.ReplantIntervalMs <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}

// VisibleInterval is the visible-window recompute cadence.
func (c Config) VisibleInterval() time.Duration {
	return time.Duration(c.VisibleIntervalMs) * time.Millisecond
}

// DaytimeInterval is the real-time length of one world hour.
func (c Config) DaytimeInterval() time.Duration {
	return time.Duration(c.DaytimeIntervalMs) * time.Millisecond
}

// ReplantInterval is the environmental tick cadence.
func (c Config) ReplantInterval() time.Duration {
	return time.Duration(c.ReplantIntervalMs) * time.Millisecond
}
