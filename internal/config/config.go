// Package config loads the YAML-plus-environment configuration used
// by the extract front-end, grounded on
// mdzesseis-log_capturer_go's internal/config/config.go (LoadConfig:
// file-then-env-override, then validate) and on the engine's own
// Config/Options shape it ultimately populates.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config is the top-level, yaml-tagged configuration for one extraction
// or sort run.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig configures the §4.L orchestrator.
type EngineConfig struct {
	// Mode is one of "single", "local", "distributed".
	Mode string `yaml:"mode"`
	// Workers is the worker goroutine count for local mode; 0 auto-sizes.
	Workers int `yaml:"workers"`

	ScanArchives        bool   `yaml:"scan_archives"`
	ProcessVSS          bool   `yaml:"process_vss"`
	VSSStores           string `yaml:"vss_stores"`
	ImageOffsetSectors  int64  `yaml:"image_offset_sectors"`
	ImageOffsetBytes    int64  `yaml:"image_offset_bytes"`
	FileFilterPath      string `yaml:"file_filter"`
	SingleThread        bool   `yaml:"single_thread"`
	Preprocess          bool   `yaml:"preprocess"`
	Timezone            string `yaml:"timezone"`
}

// StorageConfig configures the §4.J storage writer.
type StorageConfig struct {
	Path          string `yaml:"path"`
	BufferSizeRaw string `yaml:"buffer_size"`
}

// LogConfig configures internal/logging's constructed logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads path (if non-empty and present) and overlays environment
// variable overrides, mirroring LoadConfig's "file then env" order.
// A missing configFile is not an error — defaults apply, matching the
// teacher's own "Warning: ... using defaults" tolerance.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvironmentOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = "local"
	}
	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "UTC"
	}
	if cfg.Storage.BufferSizeRaw == "" {
		cfg.Storage.BufferSizeRaw = "196M"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// applyEnvironmentOverrides mirrors the teacher's SSW_*-prefixed
// overrides, scoped to this project's own PLASO4N6_* prefix.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("PLASO4N6_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v := os.Getenv("PLASO4N6_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("PLASO4N6_STORAGE"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("PLASO4N6_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PLASO4N6_TZ"); v != "" {
		cfg.Engine.Timezone = v
	}
}

// Validate rejects a BadConfiguration (§7): the only error class this
// package is responsible for, reported to the user before any work
// starts.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Engine.Mode) {
	case "single", "local", "distributed":
	default:
		return fmt.Errorf("unknown engine mode %q (want single, local, or distributed)", cfg.Engine.Mode)
	}
	if cfg.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must be >= 0, got %d", cfg.Engine.Workers)
	}
	return nil
}

// BufferSizeBytes parses StorageConfig.BufferSizeRaw ("196M", "512K",
// or a bare byte count) into bytes, matching the `--buffer-size <n|nM>`
// flag grammar of §6.
func (s StorageConfig) BufferSizeBytes() (int64, error) {
	raw := strings.TrimSpace(s.BufferSizeRaw)
	if raw == "" {
		return 0, nil
	}
	mult := int64(1)
	switch suffix := raw[len(raw)-1]; suffix {
	case 'M', 'm':
		mult = 1 << 20
		raw = raw[:len(raw)-1]
	case 'K', 'k':
		mult = 1 << 10
		raw = raw[:len(raw)-1]
	case 'G', 'g':
		mult = 1 << 30
		raw = raw[:len(raw)-1]
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid buffer size %q: %w", s.BufferSizeRaw, err)
	}
	return n * mult, nil
}
