// Package config loads the optional TOML configuration file that
// supplies everything the original C program read from its config.h
// constants: the sensor map path, the storage DSN, and log settings.
// The TCP port remains a mandatory CLI positional argument (spec.md
// §6) and is not part of this file.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the on-disk server configuration.
type Config struct {
	// SensorMapPath points at the TOML file mapping rooms to sensor
	// ids, consumed by internal/datamgr.
	SensorMapPath string `toml:"sensor_map_path"`

	// StorageDSN is the Postgres connection string used by
	// internal/storagemgr.
	StorageDSN string `toml:"storage_dsn"`

	// AggregationWindow is how many recent readings each room's running
	// average is computed over.
	AggregationWindow int `toml:"aggregation_window"`

	// Thresholds maps a room name to its alert bounds, e.g.:
	//
	//	[thresholds.kitchen]
	//	min = 10.0
	//	max = 30.0
	//
	// A room with no entry here never raises a threshold alert.
	Thresholds map[string]Threshold `toml:"thresholds"`

	Log LogConfig `toml:"log"`
}

// Threshold bounds a room's running average; see internal/datamgr.
type Threshold struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// LogConfig configures internal/applog.
type LogConfig struct {
	Level      string `toml:"level"`
	ECS        bool   `toml:"ecs"`
	FilePath   string `toml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Default returns a Config usable when no config file is given: no
// sensor map (datamgr treats every sensor as unknown), no storage DSN
// (storagemgr must be given one to start), a 5-reading aggregation
// window, and info-level logging to stderr.
func Default() Config {
	return Config{
		AggregationWindow: 5,
		Log:               LogConfig{Level: "info"},
	}
}

// Load reads and parses a TOML config file at path, starting from
// Default() so unset fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: loading %s", path)
	}
	if cfg.AggregationWindow <= 0 {
		cfg.AggregationWindow = 5
	}
	return cfg, nil
}
