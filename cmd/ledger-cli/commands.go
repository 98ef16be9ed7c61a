package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/Klingon-tech/klingnet-ledger/internal/rpc"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// ── info ────────────────────────────────────────────────────────────────

func cmdInfo(c *cli.Context) error {
	info, err := newClient(c).Info(c.Context)
	if err != nil {
		return fmt.Errorf("chain_getInfo: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, info)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Node:       %s\n", info.NodeID)
	fmt.Fprintf(w, "Length:     %d\n", info.Length)
	fmt.Fprintf(w, "Tip:        %d %s\n", info.TipIndex, info.TipHash)
	fmt.Fprintf(w, "Pending:    %d\n", info.Pending)
	fmt.Fprintf(w, "Difficulty: %d\n", info.Difficulty)
	if info.Halted {
		fmt.Fprintln(w, "Status:     HALTED")
	}
	return nil
}

// ── chain ───────────────────────────────────────────────────────────────

func cmdChain(c *cli.Context) error {
	res, err := newClient(c).Blocks(c.Context, c.Uint64("from"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("chain_getBlocks: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, res)
	}

	data := pterm.TableData{{"Index", "Time", "Txs", "Proof", "Previous hash"}}
	for _, b := range res.Blocks {
		data = append(data, []string{
			strconv.FormatUint(b.Index, 10),
			formatTime(b),
			strconv.Itoa(len(b.Transactions)),
			strconv.FormatUint(b.Proof, 10),
			shortHash(b.PreviousHash),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, table)
	fmt.Fprintf(c.App.Writer, "%d of %d blocks\n", len(res.Blocks), res.Length)
	return nil
}

// ── block ───────────────────────────────────────────────────────────────

func cmdBlock(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: ledger-cli block <index|hash>")
	}
	arg := c.Args().First()
	client := newClient(c)

	var (
		res *rpc.BlockResult
		err error
	)
	// Try as index first (pure number).
	if index, perr := strconv.ParseUint(arg, 10, 64); perr == nil {
		res, err = client.BlockByIndex(c.Context, index)
	} else {
		res, err = client.BlockByHash(c.Context, arg)
	}
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c, res)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Index:        %d\n", res.Block.Index)
	fmt.Fprintf(w, "Hash:         %s\n", res.Hash)
	fmt.Fprintf(w, "Previous:     %s\n", res.Block.PreviousHash)
	fmt.Fprintf(w, "Proof:        %d\n", res.Block.Proof)
	fmt.Fprintf(w, "Timestamp:    %s\n", formatTime(res.Block))
	fmt.Fprintf(w, "Transactions: %d\n", len(res.Block.Transactions))
	for i, t := range res.Block.Transactions {
		fmt.Fprintf(w, "  [%d] %s -> %s  %s\n", i, t.Sender, t.Recipient, formatAmount(t.Amount))
	}
	return nil
}

// ── tx ──────────────────────────────────────────────────────────────────

func cmdTx(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: ledger-cli tx <id>")
	}
	res, err := newClient(c).Transaction(c.Context, c.Args().First())
	if err != nil {
		return fmt.Errorf("chain_getTransaction: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, res)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "ID:        %s\n", res.ID)
	fmt.Fprintf(w, "Sender:    %s\n", res.Transaction.Sender)
	fmt.Fprintf(w, "Recipient: %s\n", res.Transaction.Recipient)
	fmt.Fprintf(w, "Amount:    %s\n", formatAmount(res.Transaction.Amount))
	switch {
	case res.Pending:
		fmt.Fprintln(w, "Status:    pending")
	case res.Location != nil:
		fmt.Fprintf(w, "Status:    in block %d (position %d)\n", res.Location.BlockIndex, res.Location.Position)
	}
	return nil
}

// ── submit ──────────────────────────────────────────────────────────────

func cmdSubmit(c *cli.Context) error {
	res, err := newClient(c).Submit(c.Context, c.String("from"), c.String("to"), c.Float64("amount"))
	if err != nil {
		return fmt.Errorf("tx_submit: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, res)
	}
	fmt.Fprintln(c.App.Writer, pterm.Success.Sprintf("Transaction %s will be added to Block %d", res.ID, res.BlockIndex))
	return nil
}

// ── pending ─────────────────────────────────────────────────────────────

func cmdPending(c *cli.Context) error {
	txs, err := newClient(c).Pending(c.Context)
	if err != nil {
		return fmt.Errorf("mempool_getPending: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, txs)
	}

	w := c.App.Writer
	if len(txs) == 0 {
		fmt.Fprintln(w, "No pending transactions")
		return nil
	}
	fmt.Fprintf(w, "Pending: %d\n", len(txs))
	for i, t := range txs {
		fmt.Fprintf(w, "  [%d] %s -> %s  %s\n", i, t.Sender, t.Recipient, formatAmount(t.Amount))
	}
	return nil
}

// ── mine ────────────────────────────────────────────────────────────────

func cmdMine(c *cli.Context) error {
	res, err := newClient(c).Mine(c.Context)
	if err != nil {
		return fmt.Errorf("miner_mine: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, res)
	}
	fmt.Fprintln(c.App.Writer, pterm.Success.Sprintf("New Block Forged: index %d, proof %d, %d transactions",
		res.Block.Index, res.Block.Proof, len(res.Block.Transactions)))
	fmt.Fprintf(c.App.Writer, "Hash: %s\n", res.Hash)
	return nil
}

// ── verify ──────────────────────────────────────────────────────────────

func cmdVerify(c *cli.Context) error {
	res, err := newClient(c).Verify(c.Context)
	if err != nil {
		return fmt.Errorf("chain_verify: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, res)
	}
	if res.Valid {
		fmt.Fprintln(c.App.Writer, pterm.Success.Sprint("Chain is valid"))
		return nil
	}
	fmt.Fprintln(c.App.Writer, pterm.Error.Sprint("Chain is invalid"))
	return fmt.Errorf("chain is invalid: %s", res.Error)
}

// ── pow ─────────────────────────────────────────────────────────────────

func cmdValidate(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: ledger-cli validate <last-proof> <proof>")
	}
	last, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid last proof: %w", err)
	}
	proof, err := strconv.ParseUint(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid proof: %w", err)
	}

	ok, err := newClient(c).ValidProof(c.Context, last, proof)
	if err != nil {
		return fmt.Errorf("pow_validate: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, rpc.ValidResult{Valid: ok})
	}
	fmt.Fprintln(c.App.Writer, ok)
	return nil
}

func cmdSearch(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: ledger-cli search <last-proof>")
	}
	last, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid last proof: %w", err)
	}

	proof, err := newClient(c).SearchProof(c.Context, last)
	if err != nil {
		return fmt.Errorf("pow_search: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, rpc.SearchResult{Proof: proof})
	}
	fmt.Fprintln(c.App.Writer, proof)
	return nil
}

// ── id ──────────────────────────────────────────────────────────────────

func cmdID(c *cli.Context) error {
	id, err := newClient(c).NodeID(c.Context)
	if err != nil {
		return fmt.Errorf("node_getID: %w", err)
	}
	if c.Bool("json") {
		return printJSON(c, rpc.NodeIDResult{NodeID: id})
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

// ── Helpers ─────────────────────────────────────────────────────────────

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(b *block.Block) string {
	return b.Time().UTC().Format(time.RFC3339)
}

func formatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}

// shortHash abbreviates a hash for table output. Non-hash values such as
// the genesis previous hash are returned unchanged.
func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}
