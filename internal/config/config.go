// Package config holds the Commons configuration: where patterns live,
// how the observer gates captures, and how logging behaves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all WIKAI Commons configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Library  LibraryConfig  `yaml:"library"`
	Observer ObserverConfig `yaml:"observer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LibraryConfig configures the pattern store.
type LibraryConfig struct {
	// Directory holding one JSON file per pattern.
	PatternsDir string `yaml:"patterns_dir"`

	// Watch external edits to the patterns directory and rescan.
	WatchEnabled bool `yaml:"watch_enabled"`

	// Debounce window for watcher-triggered rescans.
	WatchDebounce string `yaml:"watch_debounce"`
}

// ObserverConfig configures passive ingestion.
type ObserverConfig struct {
	AutoCapture        bool    `yaml:"auto_capture"`
	StabilityThreshold float64 `yaml:"stability_threshold"`
	SystemName         string  `yaml:"system_name"`

	// Repeat observations required before a sub-threshold candidate
	// may promote on its running-max stability.
	MinObservations int `yaml:"min_observations"`

	// Rolling event history capacity.
	HistorySize int `yaml:"history_size"`

	// Candidate eviction bounds keep the pending set finite on a noisy
	// host.
	CandidateCap     int    `yaml:"candidate_cap"`
	CandidateMaxIdle string `yaml:"candidate_max_idle"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"` // debug, info, warn, error
	Dir       string `yaml:"dir"`   // base directory for logs/ (defaults to patterns dir parent)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "wikai",
		Version: "1.0.0",

		Library: LibraryConfig{
			PatternsDir:   "patterns",
			WatchEnabled:  false,
			WatchDebounce: "500ms",
		},

		Observer: ObserverConfig{
			AutoCapture:        true,
			StabilityThreshold: 0.8,
			SystemName:         "unknown",
			MinObservations:    3,
			HistorySize:        1000,
			CandidateCap:       256,
			CandidateMaxIdle:   "24h",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
			Dir:       ".wikai",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("WIKAI_PATTERNS_DIR"); dir != "" {
		c.Library.PatternsDir = dir
	}
	if name := os.Getenv("WIKAI_SYSTEM_NAME"); name != "" {
		c.Observer.SystemName = name
	}
	if raw := os.Getenv("WIKAI_DEBUG"); raw != "" {
		if debug, err := strconv.ParseBool(raw); err == nil {
			c.Logging.DebugMode = debug
		}
	}
	if raw := os.Getenv("WIKAI_STABILITY_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			c.Observer.StabilityThreshold = v
		}
	}
}

// GetWatchDebounce returns the watcher debounce window as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Library.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetCandidateMaxIdle returns the candidate idle eviction age as a duration.
func (c *Config) GetCandidateMaxIdle() time.Duration {
	d, err := time.ParseDuration(c.Observer.CandidateMaxIdle)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
