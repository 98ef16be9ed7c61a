package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Version is reported by --version.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help        bool
	Version     bool
	WriteConfig string

	// Core
	Config    string
	EnvFile   string
	Storage   string
	PoolLimit int

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Metrics
	Metrics     bool
	MetricsAddr string
	MetricsPort int

	// Mining
	Mine       bool
	Difficulty int
	Threads    int
	Interval   time.Duration

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags (for true/false and zero-value overrides).
	SetRPC     bool
	SetMetrics bool
	SetMine    bool
	SetThreads bool
	SetLogJSON bool
}

// ParseFlags parses command-line flags. It returns flag.ErrHelp when
// --help was given.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")
	fs.StringVar(&f.WriteConfig, "write-config", "", "Write a default config file to the given path and exit")

	// Core
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Dotenv file loaded before reading LEDGER_* variables")
	fs.StringVar(&f.Storage, "storage", "", "Block index backend (memory or badger)")
	fs.IntVar(&f.PoolLimit, "pool-limit", 0, "Maximum pending transactions accepted over RPC")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// Metrics
	fs.BoolVar(&f.Metrics, "metrics", false, "Enable the Prometheus endpoint")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Metrics listen address")
	fs.IntVar(&f.MetricsPort, "metrics-port", 0, "Metrics listen port")

	// Mining
	fs.BoolVar(&f.Mine, "mine", false, "Run the background miner")
	fs.IntVar(&f.Difficulty, "difficulty", 0, "Leading zero hex digits a proof needs")
	fs.IntVar(&f.Threads, "threads", 0, "Proof search threads (0 = one per CPU)")
	fs.DurationVar(&f.Interval, "mine-interval", 0, "Pause between mined blocks")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.Help {
		return f, flag.ErrHelp
	}

	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetMetrics = isFlagSet(fs, "metrics")
	f.SetMine = isFlagSet(fs, "mine")
	f.SetThreads = isFlagSet(fs, "threads")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// Detect flags left unparsed because a positional argument stopped the parser.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Storage != "" {
		cfg.Ledger.Storage = strings.ToLower(f.Storage)
	}
	if f.PoolLimit != 0 {
		cfg.Ledger.PoolLimit = f.PoolLimit
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Metrics
	if f.SetMetrics {
		cfg.Metrics.Enabled = f.Metrics
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}
	if f.MetricsPort != 0 {
		cfg.Metrics.Port = f.MetricsPort
	}

	// Mining
	if f.SetMine {
		cfg.Mining.Enabled = f.Mine
	}
	if f.Difficulty != 0 {
		cfg.Mining.Difficulty = f.Difficulty
	}
	if f.SetThreads {
		cfg.Mining.Threads = f.Threads
	}
	if f.Interval != 0 {
		cfg.Mining.Interval = f.Interval
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `Ledger node - single-node proof-of-work ledger

Usage:
  ledgerd [options]
  ledgerd --help

Commands:
  --help, -h        Show this help message
  --version, -v     Show version information
  --write-config    Write a default config file and exit

Core Options:
  --config, -c      Config file path (default: none)
  --env-file        Dotenv file with LEDGER_* variables (default: .env)
  --storage         Block index backend: memory (default) or badger
  --pool-limit      Maximum pending transactions accepted over RPC

RPC Options:
  --rpc             Enable RPC server (default: true)
  --rpc-addr        RPC listen address (default: 127.0.0.1)
  --rpc-port        RPC port (default: 5000)
  --rpc-allowed     Allowed IPs for RPC (comma-separated)
  --rpc-cors        Allowed CORS origins for RPC (comma-separated)

Metrics Options:
  --metrics         Enable the Prometheus endpoint
  --metrics-addr    Metrics listen address (default: 127.0.0.1)
  --metrics-port    Metrics port (default: 9090)

Mining Options:
  --mine            Run the background miner
  --difficulty      Leading zero hex digits (default: 4)
  --threads         Proof search threads, 0 = one per CPU (default: 1)
  --mine-interval   Pause between mined blocks (default: 1s)

Logging Options:
  --log-level       Log level: debug, info, warn, error (default: info)
  --log-file        Log file path (default: stdout)
  --log-json        Output logs as JSON

Environment:
  Every option can also be set as LEDGER_<SECTION>_<KEY>, for example
  LEDGER_RPC_PORT=5001 or LEDGER_MINING_DIFFICULTY=5.

Examples:
  # Start a node that mines continuously
  ledgerd --mine --threads=0

  # Serve metrics next to the RPC endpoint
  ledgerd --metrics --metrics-port=9100
`)
}

// Load builds the configuration with the following precedence:
// 1. Default values
// 2. Config file
// 3. LEDGER_* environment variables
// 4. Command-line flags
func Load(f *Flags) (*Config, error) {
	cfg := Default()

	if f.Config != "" {
		fileValues, err := LoadFile(f.Config)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		if err := ApplyFileConfig(cfg, fileValues); err != nil {
			return nil, fmt.Errorf("applying config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	ApplyFlags(cfg, f)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// IsHelp reports whether err came from --help.
func IsHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
