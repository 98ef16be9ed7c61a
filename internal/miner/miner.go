// Package miner searches for proofs and mints blocks on the local ledger.
package miner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/Klingon-tech/klingnet-ledger/internal/ledger"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// Reward parameters for the transaction a miner pays itself.
const (
	RewardSender = "0"
	RewardAmount = 1
)

// ErrStaleTip is returned when the chain tail moved during the search.
var ErrStaleTip = ledger.ErrStaleTip

// Chain is the part of the ledger a miner needs.
type Chain interface {
	Tip() (*block.Block, string, error)
	MintOnTip(proof uint64, tipHash string, extra ...block.Transaction) (*block.Block, error)
}

// SearchRecorder records proof-search outcomes. *metrics.Metrics
// implements it.
type SearchRecorder interface {
	RecordSearch(outcome string, durationSeconds float64)
}

// Miner produces new blocks.
type Miner struct {
	chain   Chain
	engine  consensus.Engine
	nodeID  string
	metrics SearchRecorder
	logger  zerolog.Logger
}

// New creates a miner that credits rewards to nodeID. rec may be nil.
func New(chain Chain, engine consensus.Engine, nodeID string, rec SearchRecorder, logger zerolog.Logger) *Miner {
	if rec == nil {
		rec = (*metrics.Metrics)(nil)
	}
	return &Miner{
		chain:   chain,
		engine:  engine,
		nodeID:  nodeID,
		metrics: rec,
		logger:  logger,
	}
}

// Mine searches for a proof on top of the current tail, then mints a block
// holding the pending transactions plus the reward transaction. If another
// block was appended during the search, no block is minted and the error
// wraps ErrStaleTip.
func (m *Miner) Mine(ctx context.Context) (*block.Block, error) {
	tail, tipHash, err := m.chain.Tip()
	if err != nil {
		return nil, fmt.Errorf("read tip: %w", err)
	}

	start := time.Now()
	proof, err := m.engine.Search(ctx, tail.Proof)
	elapsed := time.Since(start)
	if err != nil {
		m.metrics.RecordSearch(metrics.OutcomeCanceled, elapsed.Seconds())
		return nil, fmt.Errorf("search proof: %w", err)
	}

	reward := block.Transaction{Sender: RewardSender, Recipient: m.nodeID, Amount: RewardAmount}
	blk, err := m.chain.MintOnTip(proof, tipHash, reward)
	if errors.Is(err, ErrStaleTip) {
		m.metrics.RecordSearch(metrics.OutcomeStale, elapsed.Seconds())
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("mint block: %w", err)
	}
	m.metrics.RecordSearch(metrics.OutcomeFound, elapsed.Seconds())

	m.logger.Info().
		Uint64("index", blk.Index).
		Uint64("proof", proof).
		Int("txs", len(blk.Transactions)).
		Dur("search", elapsed).
		Msg("Block mined")
	return blk, nil
}

// Run mines a block every interval until ctx is cancelled. Stale tips are
// retried on the next tick; any other error is logged and mining goes on.
func (m *Miner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Block production stopped")
			return nil
		case <-ticker.C:
			_, err := m.Mine(ctx)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				m.logger.Info().Msg("Block production stopped")
				return nil
			case errors.Is(err, ErrStaleTip):
				m.logger.Debug().Err(err).Msg("Tip moved during search, retrying")
			case errors.Is(err, ledger.ErrHalted):
				return err
			default:
				m.logger.Error().Err(err).Msg("Failed to mine block")
			}
		}
	}
}
