package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ApplyEnv overlays CTRAINER_* environment variables on cfg. Variables that
// are not set leave the file values in place.
func ApplyEnv(cfg FileConfig) (FileConfig, error) {
	var fromEnv FileConfig
	if err := env.Parse(&fromEnv); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	overlay(&cfg.Trainer.MaxAttempts, fromEnv.Trainer.MaxAttempts)
	overlay(&cfg.Trainer.SettleDelayMs, fromEnv.Trainer.SettleDelayMs)
	overlay(&cfg.Trainer.AutoAdvance, fromEnv.Trainer.AutoAdvance)
	overlay(&cfg.Trainer.Enabled, fromEnv.Trainer.Enabled)
	overlay(&cfg.Storage.Backend, fromEnv.Storage.Backend)
	overlay(&cfg.Storage.Path, fromEnv.Storage.Path)
	overlay(&cfg.Log.Level, fromEnv.Log.Level)
	overlay(&cfg.Log.File, fromEnv.Log.File)
	return cfg, nil
}

func overlay[T any](target **T, value *T) {
	if value != nil {
		*target = value
	}
}
