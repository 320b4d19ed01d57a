// SPDX-License-Identifier: MIT

// Package config loads tool configuration from YAML with built-in
// defaults. Everything here has a matching CLI flag; flags win.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"specgram/internal/log"
	"specgram/internal/profile"
)

// Config is the main configuration structure, loaded from YAML.
type Config struct {
	LogLevel string          `yaml:"log_level"` // "debug", "info", "warn", "error"
	Render   RenderConfig    `yaml:"render"`    // Default render geometry.
	Serve    ServeConfig     `yaml:"serve"`     // Live raster broadcasting.
	Profiles []ProfileConfig `yaml:"profiles"`  // Extra analysis presets merged into the catalog.
}

// RenderConfig holds the default render geometry and cadence.
type RenderConfig struct {
	Profile      string  `yaml:"profile"`       // Analysis preset name.
	Width        int     `yaml:"width"`         // Output raster width in pixels.
	Height       int     `yaml:"height"`        // Output raster height in pixels.
	CutoffHz     float64 `yaml:"cutoff_hz"`     // Upper frequency bound; 0 keeps the profile default.
	FlushColumns int     `yaml:"flush_columns"` // Columns between display flushes.
}

// ServeConfig holds the websocket raster broadcasting settings.
type ServeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// ProfileConfig is a user-defined analysis preset.
type ProfileConfig struct {
	Name       string `yaml:"name"`
	SampleRate int    `yaml:"sample_rate"`
	WindowSize int    `yaml:"window_size"`
	HopSize    int    `yaml:"hop_size"`
	MaxFreqBin int    `yaml:"max_freq_bin"`
}

// defaultPath is searched when no explicit config path is given.
const defaultPath = "specgram.yaml"

// Load reads configuration from the YAML file at path. An empty path
// falls back to specgram.yaml if present, else built-in defaults. The
// final configuration is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Render: RenderConfig{
			Profile:      "standard",
			Width:        1600,
			Height:       400,
			FlushColumns: 32,
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}

	if path == "" {
		if _, err := os.Stat(defaultPath); err == nil {
			path = defaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render dimensions must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.CutoffHz < 0 {
		return fmt.Errorf("cutoff_hz must not be negative, got %g", c.Render.CutoffHz)
	}
	if c.Render.FlushColumns < 0 {
		return fmt.Errorf("flush_columns must not be negative, got %d", c.Render.FlushColumns)
	}
	if c.Serve.Enabled && c.Serve.Addr == "" {
		return fmt.Errorf("serve.addr is required when serve.enabled is set")
	}
	for _, p := range c.Profiles {
		if err := p.toProfile().Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return nil
}

// Catalog returns the built-in profile catalog with the configured extra
// profiles registered on top.
func (c *Config) Catalog() (*profile.Catalog, error) {
	catalog := profile.NewCatalog()
	for _, p := range c.Profiles {
		if err := catalog.Register(p.toProfile()); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (p ProfileConfig) toProfile() profile.Profile {
	return profile.Profile{
		Name:       p.Name,
		SampleRate: p.SampleRate,
		WindowSize: p.WindowSize,
		HopSize:    p.HopSize,
		MaxFreqBin: p.MaxFreqBin,
	}
}
