package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
// A missing file yields an empty map.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	// Ledger
	case "ledger.storage", "storage":
		cfg.Ledger.Storage = strings.ToLower(value)
	case "ledger.poollimit":
		cfg.Ledger.PoolLimit, err = strconv.Atoi(value)
	case "ledger.genesis_hash":
		cfg.Ledger.GenesisHash = value
	case "ledger.genesis_proof":
		cfg.Ledger.GenesisProof, err = strconv.ParseUint(value, 10, 64)

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		cfg.RPC.Port, err = strconv.Atoi(value)
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "metrics.port":
		cfg.Metrics.Port, err = strconv.Atoi(value)

	// Mining
	case "mining.enabled", "mine":
		cfg.Mining.Enabled = parseBool(value)
	case "mining.difficulty":
		cfg.Mining.Difficulty, err = strconv.Atoi(value)
	case "mining.threads":
		cfg.Mining.Threads, err = strconv.Atoi(value)
	case "mining.interval":
		cfg.Mining.Interval, err = time.ParseDuration(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return err
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string) error {
	d := Default()
	content := `# Ledger Node Configuration
#
# Precedence: defaults < this file < LEDGER_* environment < flags.

# ============================================================================
# Ledger
# ============================================================================

# Block index backend: memory or badger (both keep data in memory only)
ledger.storage = ` + d.Ledger.Storage + `

# Maximum pending transactions accepted over RPC (0 = unlimited)
ledger.poollimit = ` + strconv.Itoa(d.Ledger.PoolLimit) + `

# Genesis block linkage
# ledger.genesis_hash = ` + d.Ledger.GenesisHash + `
# ledger.genesis_proof = ` + strconv.FormatUint(d.Ledger.GenesisProof, 10) + `

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = ` + d.RPC.Addr + `
rpc.port = ` + strconv.Itoa(d.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Metrics
# ============================================================================

metrics.enabled = false
metrics.addr = ` + d.Metrics.Addr + `
metrics.port = ` + strconv.Itoa(d.Metrics.Port) + `

# ============================================================================
# Mining
# ============================================================================

# Run the background miner
mining.enabled = false

# Leading zero hex digits a proof hash needs
mining.difficulty = ` + strconv.Itoa(d.Mining.Difficulty) + `

# Search threads (0 = one per CPU)
mining.threads = ` + strconv.Itoa(d.Mining.Threads) + `

# Pause between mined blocks
mining.interval = ` + d.Mining.Interval.String() + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
