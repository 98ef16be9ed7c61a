package node

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RPC.Port = 0
	cfg.RPC.AllowedIPs = nil
	cfg.Metrics.Port = 0
	cfg.Mining.Difficulty = 1
	cfg.Mining.Interval = 10 * time.Millisecond
	return cfg
}

// startNode runs n in the background and returns a stop function that
// cancels it and returns Run's result.
func startNode(t *testing.T, n *Node) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	var stopped bool
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("node did not stop")
			return nil
		}
	}
	t.Cleanup(func() { stop() })
	return stop
}

func TestNewNodeID(t *testing.T) {
	a, b := NewNodeID(), NewNodeID()
	if len(a) != 32 {
		t.Fatalf("id length = %d, want 32", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Fatalf("id %q is not hex: %v", a, err)
	}
	if a == b {
		t.Fatal("two ids are equal")
	}
}

func TestNew_BadStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.Storage = "leveldb"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}

func TestNew_BadDifficulty(t *testing.T) {
	cfg := testConfig()
	cfg.Mining.Difficulty = 0
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for difficulty 0")
	}
}

func TestNode_ServesRPC(t *testing.T) {
	n, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stop := startNode(t, n)

	client := rpcclient.New("http://" + n.RPCAddr() + "/")
	info, err := client.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.NodeID != n.ID() {
		t.Errorf("node id = %q, want %q", info.NodeID, n.ID())
	}
	if info.Length != 1 {
		t.Errorf("length = %d, want 1", info.Length)
	}

	// On-demand mining works with the background miner disabled.
	res, err := client.Mine(context.Background())
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if res.Block.Index != 2 {
		t.Errorf("mined index = %d, want 2", res.Block.Index)
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNode_BackgroundMining(t *testing.T) {
	cfg := testConfig()
	cfg.Mining.Enabled = true
	cfg.RPC.Enabled = false
	cfg.Ledger.Storage = storage.BackendBadger

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.RPCAddr() != "" {
		t.Errorf("RPCAddr = %q with RPC disabled", n.RPCAddr())
	}
	stop := startNode(t, n)

	deadline := time.Now().Add(5 * time.Second)
	for n.Ledger().Len() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("chain length = %d after 5s, want >= 3", n.Ledger().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := n.Ledger().Verify(); err != nil {
		t.Fatalf("Verify after mining: %v", err)
	}

	blk, err := n.Ledger().BlockByIndex(2)
	if err != nil {
		t.Fatalf("BlockByIndex(2): %v", err)
	}
	reward := blk.Transactions[len(blk.Transactions)-1]
	if reward.Recipient != n.ID() {
		t.Errorf("reward recipient = %q, want node id", reward.Recipient)
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNode_Metrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true

	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Registry() == nil {
		t.Fatal("registry is nil with metrics enabled")
	}
	stop := startNode(t, n)

	n.Ledger().AddTransaction("A", "B", 1)

	families, err := n.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "ledger_pending_transactions" {
			found = true
			if got := f.GetMetric()[0].GetGauge().GetValue(); got != 1 {
				t.Errorf("pending gauge = %v, want 1", got)
			}
		}
	}
	if !found {
		t.Error("ledger_pending_transactions not registered")
	}

	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNode_MetricsDisabled(t *testing.T) {
	n, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Registry() != nil {
		t.Error("registry should be nil with metrics disabled")
	}
	stop := startNode(t, n)
	if err := stop(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
