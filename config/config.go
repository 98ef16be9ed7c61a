// Package config handles ledger node configuration.
//
// Values are layered with increasing precedence:
//   - Built-in defaults
//   - The .conf file (key = value)
//   - LEDGER_* environment variables
//   - Command-line flags
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds node runtime configuration.
type Config struct {
	// Ledger core
	Ledger LedgerConfig

	// RPC server
	RPC RPCConfig `envPrefix:"RPC_"`

	// Prometheus endpoint
	Metrics MetricsConfig `envPrefix:"METRICS_"`

	// Proof-of-work and the background miner
	Mining MiningConfig `envPrefix:"MINING_"`

	// Logging
	Log LogConfig `envPrefix:"LOG_"`
}

// LedgerConfig holds ledger settings.
type LedgerConfig struct {
	Storage      string `conf:"ledger.storage" env:"STORAGE"`         // memory or badger (in-memory mode)
	PoolLimit    int    `conf:"ledger.poollimit" env:"POOL_LIMIT"`    // 0 = unlimited
	GenesisHash  string `conf:"ledger.genesis_hash" env:"GENESIS_HASH"`
	GenesisProof uint64 `conf:"ledger.genesis_proof" env:"GENESIS_PROOF"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled" env:"ENABLED"`
	Addr        string   `conf:"rpc.addr" env:"ADDR"`
	Port        int      `conf:"rpc.port" env:"PORT"`
	AllowedIPs  []string `conf:"rpc.allowed" env:"ALLOWED"`
	CORSOrigins []string `conf:"rpc.cors" env:"CORS"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `conf:"metrics.enabled" env:"ENABLED"`
	Addr    string `conf:"metrics.addr" env:"ADDR"`
	Port    int    `conf:"metrics.port" env:"PORT"`
}

// MiningConfig holds proof-of-work settings.
type MiningConfig struct {
	Enabled    bool          `conf:"mining.enabled" env:"ENABLED"`       // Run the background miner.
	Difficulty int           `conf:"mining.difficulty" env:"DIFFICULTY"` // Leading zero hex digits.
	Threads    int           `conf:"mining.threads" env:"THREADS"`       // 0 = one per CPU.
	Interval   time.Duration `conf:"mining.interval" env:"INTERVAL"`     // Pause between mined blocks.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level" env:"LEVEL"`
	File  string `conf:"log.file" env:"FILE"`
	JSON  bool   `conf:"log.json" env:"JSON"`
}

// RPCListenAddr returns the host:port the RPC server binds.
func (c *Config) RPCListenAddr() string {
	return net.JoinHostPort(c.RPC.Addr, strconv.Itoa(c.RPC.Port))
}

// MetricsListenAddr returns the host:port the metrics server binds.
func (c *Config) MetricsListenAddr() string {
	return net.JoinHostPort(c.Metrics.Addr, strconv.Itoa(c.Metrics.Port))
}

// RPCURL returns the URL clients use to reach the RPC server.
func (c *Config) RPCURL() string {
	host := c.RPC.Addr
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, strconv.Itoa(c.RPC.Port)))
}
