package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable the node reads,
// e.g. LEDGER_RPC_PORT or LEDGER_MINING_DIFFICULTY.
const EnvPrefix = "LEDGER_"

// ApplyEnv overlays LEDGER_* environment variables onto cfg. Unset
// variables leave the current value alone.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, nil)
}

func applyEnv(cfg *Config, environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
