// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Trainer TrainerConfig `toml:"trainer"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

// TrainerConfig maps trainer-related settings.
type TrainerConfig struct {
	MaxAttempts   *int  `toml:"max-attempts" env:"CTRAINER_MAX_ATTEMPTS"`
	SettleDelayMs *int  `toml:"settle-delay-ms" env:"CTRAINER_SETTLE_DELAY_MS"`
	AutoAdvance   *bool `toml:"auto-advance" env:"CTRAINER_AUTO_ADVANCE"`
	Enabled       *bool `toml:"enabled" env:"CTRAINER_ENABLED"`
}

// StorageConfig selects where lifetime data is kept.
type StorageConfig struct {
	Backend *string `toml:"backend" env:"CTRAINER_STORAGE_BACKEND"`
	Path    *string `toml:"path" env:"CTRAINER_STORAGE_PATH"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level" env:"CTRAINER_LOG_LEVEL"`
	File  *string `toml:"file" env:"CTRAINER_LOG_FILE"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
