// Ledger node daemon.
//
// Usage:
//
//	ledgerd [--mine --difficulty=4]     Run node
//	ledgerd --write-config=ledger.conf  Write a default config file
//	ledgerd --help                      Show help
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Klingon-tech/klingnet-ledger/config"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/node"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, err := config.ParseFlags(args)
	if config.IsHelp(err) {
		config.PrintUsage(os.Stdout)
		return nil
	}
	if err != nil {
		return err
	}

	if f.Version {
		fmt.Printf("ledgerd %s\n", config.Version)
		return nil
	}
	if f.WriteConfig != "" {
		if err := config.WriteDefaultConfig(f.WriteConfig); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", f.WriteConfig)
		return nil
	}

	// A missing .env is normal; variables may come from the real environment.
	if f.EnvFile != "" {
		if err := godotenv.Load(f.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f.EnvFile, err)
		}
	}

	cfg, err := config.Load(f)
	if err != nil {
		return err
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	n, err := node.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return n.Run(ctx)
}
