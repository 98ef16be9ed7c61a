package miner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/ledger"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(ledger.WithLogger(klog.Nop()))
	require.NoError(t, err)
	return l
}

func newPoW(t *testing.T, difficulty int) *consensus.PoW {
	t.Helper()
	pow, err := consensus.NewPoW(difficulty, 1)
	require.NoError(t, err)
	return pow
}

// hookEngine runs hook before delegating to the wrapped engine.
type hookEngine struct {
	consensus.Engine
	hook func()
}

func (h hookEngine) Search(ctx context.Context, lastProof uint64) (uint64, error) {
	h.hook()
	return h.Engine.Search(ctx, lastProof)
}

func TestMine(t *testing.T) {
	l := newLedger(t)
	genesis, err := l.LastBlock()
	require.NoError(t, err)
	l.AddTransaction("A", "B", 5)

	m := New(l, newPoW(t, 2), "node-1", nil, klog.Nop())
	blk, err := m.Mine(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), blk.Index)
	assert.Equal(t, uint64(226), blk.Proof) // Minimal difficulty-2 proof after 100.
	assert.Equal(t, block.MustHash(genesis), blk.PreviousHash)
	require.Len(t, blk.Transactions, 2)
	assert.Equal(t, block.Transaction{Sender: "A", Recipient: "B", Amount: 5}, blk.Transactions[0])
	assert.Equal(t, block.Transaction{Sender: RewardSender, Recipient: "node-1", Amount: RewardAmount}, blk.Transactions[1])
	assert.Empty(t, l.Pending())
	assert.Equal(t, 2, l.Len())
}

func TestMine_DefaultDifficultyProof(t *testing.T) {
	l := newLedger(t)
	pow, err := consensus.NewPoW(consensus.DefaultDifficulty, 4)
	require.NoError(t, err)

	blk, err := New(l, pow, "n", nil, klog.Nop()).Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(35293), blk.Proof)
	assert.True(t, pow.Valid(100, blk.Proof))
}

func TestMine_StaleTip(t *testing.T) {
	l := newLedger(t)
	reg := prometheus.NewRegistry()
	met, err := metrics.New(reg)
	require.NoError(t, err)

	engine := hookEngine{
		Engine: newPoW(t, 1),
		hook: func() {
			_, err := l.MintBlock(1, "")
			require.NoError(t, err)
		},
	}
	l.AddTransaction("A", "B", 5)

	_, err = New(l, engine, "n", met, klog.Nop()).Mine(context.Background())
	require.ErrorIs(t, err, ErrStaleTip)

	// Only the competing block was appended; the reward never entered the chain.
	assert.Equal(t, 2, l.Len())
	tail, _ := l.LastBlock()
	require.Len(t, tail.Transactions, 1)
	assert.Equal(t, "A", tail.Transactions[0].Sender)
	assert.Empty(t, l.Pending())

	families, err := reg.Gather()
	require.NoError(t, err)
	var stale float64
	for _, f := range families {
		if f.GetName() != "ledger_pow_searches_total" {
			continue
		}
		for _, mt := range f.GetMetric() {
			if mt.GetLabel()[0].GetValue() == metrics.OutcomeStale {
				stale = mt.GetCounter().GetValue()
			}
		}
	}
	assert.InDelta(t, 1, stale, 0)
}

func TestMine_Cancelled(t *testing.T) {
	l := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(l, newPoW(t, 64), "n", nil, klog.Nop()).Mine(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Len())
}

func TestMine_Halted(t *testing.T) {
	l := newLedger(t)
	chain := haltedChain{l}
	_, err := New(chain, newPoW(t, 1), "n", nil, klog.Nop()).Mine(context.Background())
	require.ErrorIs(t, err, ledger.ErrHalted)
}

type haltedChain struct{ *ledger.Ledger }

func (haltedChain) MintOnTip(uint64, string, ...block.Transaction) (*block.Block, error) {
	return nil, ledger.ErrHalted
}

func TestRun_MinesUntilCancelled(t *testing.T) {
	l := newLedger(t)
	reg := prometheus.NewRegistry()
	met, err := metrics.New(reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(l, newPoW(t, 1), "n", met, klog.Nop()).Run(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return l.Len() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, consensus.VerifyProofs(newPoW(t, 1), l.Chain()))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ledger_pow_searches_total")
}

func TestRun_StopsWhenHalted(t *testing.T) {
	l := newLedger(t)
	err := New(haltedChain{l}, newPoW(t, 1), "n", nil, klog.Nop()).Run(context.Background(), time.Millisecond)
	require.True(t, errors.Is(err, ledger.ErrHalted))
}

func TestRun_StopsOnUnserializablePending(t *testing.T) {
	l := newLedger(t)
	l.AddTransaction("A", "B", math.NaN())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := New(l, newPoW(t, 1), "n", nil, klog.Nop()).Run(ctx, time.Millisecond)
	require.ErrorIs(t, err, ledger.ErrHalted)
	assert.ErrorIs(t, err, block.ErrSerialization)
	assert.NoError(t, ctx.Err(), "Run should stop before the deadline")
	assert.Equal(t, 1, l.Len())
}
