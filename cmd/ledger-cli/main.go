// ledger-cli is a command-line client for interacting with a ledgerd node.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpcclient"
)

const defaultRPCURL = "http://127.0.0.1:5000/"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(w io.Writer) *cli.App {
	return &cli.App{
		Name:    "ledger-cli",
		Usage:   "Query and drive a ledgerd node over JSON-RPC",
		Version: config.Version,
		Writer:  w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc",
				Aliases: []string{"r"},
				Usage:   "RPC endpoint URL",
				EnvVars: []string{"LEDGER_RPC_URL"},
				Value:   defaultRPCURL,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP timeout per call (mine and search may need more)",
				Value: 10 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print raw JSON results",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show chain length, tip and pending count",
				Action: cmdInfo,
			},
			{
				Name:  "chain",
				Usage: "List blocks as a table",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "from", Usage: "First block index", Value: 1},
					&cli.IntFlag{Name: "limit", Usage: "Maximum blocks to list (0 = all)"},
				},
				Action: cmdChain,
			},
			{
				Name:      "block",
				Usage:     "Show a block by index or hash",
				ArgsUsage: "<index|hash>",
				Action:    cmdBlock,
			},
			{
				Name:      "tx",
				Usage:     "Show a transaction by id",
				ArgsUsage: "<id>",
				Action:    cmdTx,
			},
			{
				Name:  "submit",
				Usage: "Submit a transaction to the pending pool",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Sender", Required: true},
					&cli.StringFlag{Name: "to", Usage: "Recipient", Required: true},
					&cli.Float64Flag{Name: "amount", Usage: "Amount", Required: true},
				},
				Action: cmdSubmit,
			},
			{
				Name:   "pending",
				Usage:  "List pending transactions",
				Action: cmdPending,
			},
			{
				Name:   "mine",
				Usage:  "Search for a proof and mint a block",
				Action: cmdMine,
			},
			{
				Name:   "verify",
				Usage:  "Verify chain links and proofs",
				Action: cmdVerify,
			},
			{
				Name:      "validate",
				Usage:     "Check a proof against the previous proof",
				ArgsUsage: "<last-proof> <proof>",
				Action:    cmdValidate,
			},
			{
				Name:      "search",
				Usage:     "Find the smallest proof for a previous proof",
				ArgsUsage: "<last-proof>",
				Action:    cmdSearch,
			},
			{
				Name:   "id",
				Usage:  "Show the node identifier",
				Action: cmdID,
			},
		},
	}
}

func newClient(c *cli.Context) *rpcclient.Client {
	return rpcclient.NewWithTimeout(c.String("rpc"), c.Duration("timeout"))
}
