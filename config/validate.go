package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Ledger.Storage {
	case storage.BackendMemory, storage.BackendBadger:
	default:
		return fmt.Errorf("ledger.storage must be %q or %q", storage.BackendMemory, storage.BackendBadger)
	}
	if cfg.Ledger.PoolLimit < 0 {
		return fmt.Errorf("ledger.poollimit must not be negative")
	}
	if cfg.Ledger.GenesisHash == "" {
		return fmt.Errorf("ledger.genesis_hash must not be empty")
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	if cfg.Metrics.Port < 0 || cfg.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be in range [0, 65535]")
	}
	if cfg.RPC.Enabled && cfg.Metrics.Enabled && cfg.RPC.Port != 0 &&
		cfg.RPC.Port == cfg.Metrics.Port && cfg.RPC.Addr == cfg.Metrics.Addr {
		return fmt.Errorf("rpc and metrics cannot share %s", cfg.RPCListenAddr())
	}
	if cfg.Mining.Difficulty < 1 || cfg.Mining.Difficulty > 64 {
		return fmt.Errorf("mining.difficulty must be in range [1, 64]")
	}
	if cfg.Mining.Threads < 0 {
		return fmt.Errorf("mining.threads must not be negative")
	}
	if cfg.Mining.Enabled && cfg.Mining.Interval <= 0 {
		return fmt.Errorf("mining.interval must be positive when mining is enabled")
	}
	for i, entry := range cfg.RPC.AllowedIPs {
		if err := validateIPEntry(entry); err != nil {
			return fmt.Errorf("rpc.allowed[%d]: %w", i, err)
		}
	}
	return nil
}

func validateIPEntry(entry string) error {
	entry = strings.TrimSpace(entry)
	if _, _, err := net.ParseCIDR(entry); err == nil {
		return nil
	}
	if net.ParseIP(entry) != nil {
		return nil
	}
	return fmt.Errorf("%q is not an IP or CIDR", entry)
}
