package config

import (
	"time"

	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/Klingon-tech/klingnet-ledger/internal/ledger"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// Default returns the default node configuration.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Storage:      storage.BackendMemory,
			PoolLimit:    10000,
			GenesisHash:  ledger.GenesisPreviousHash,
			GenesisProof: ledger.GenesisProof,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       5000,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1",
			Port:    9090,
		},
		Mining: MiningConfig{
			Enabled:    false,
			Difficulty: consensus.DefaultDifficulty,
			Threads:    1,
			Interval:   time.Second,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
