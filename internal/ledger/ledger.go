// Package ledger maintains the hash-linked block sequence and the pending
// transaction pool of a single node.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/mempool"
	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Genesis parameters.
const (
	GenesisPreviousHash = "1"
	GenesisProof        = 100
)

// Ledger errors.
var (
	ErrEmptyChain  = errors.New("chain is empty")
	ErrHalted      = errors.New("ledger halted after integrity failure")
	ErrBrokenChain = errors.New("chain integrity violated")
	ErrNotFound    = errors.New("not found")
	ErrStaleTip    = errors.New("chain tip changed")
)

// Ledger owns the chain and the pending pool. All methods are safe for
// concurrent use.
type Ledger struct {
	mu       sync.RWMutex // Guards chain, tipHash, unlinked and halted; serializes pool mutation.
	chain    []*block.Block
	tipHash  string
	unlinked map[uint64]struct{} // Blocks minted with a caller-supplied previous hash that did not match the tip.
	halted   error

	pool    *mempool.Pool
	store   *BlockStore
	clock   func() time.Time
	logger  zerolog.Logger
	metrics Metrics
}

// New creates a ledger holding only the genesis block.
func New(opts ...Option) (*Ledger, error) {
	o := options{
		clock:    time.Now,
		genPrev:  GenesisPreviousHash,
		genProof: GenesisProof,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.db == nil {
		o.db = storage.NewMemory()
	}
	if o.metrics == nil {
		o.metrics = nopMetrics{}
	}
	logger := klog.Ledger
	if o.logger != nil {
		logger = *o.logger
	}

	l := &Ledger{
		unlinked: make(map[uint64]struct{}),
		pool:     mempool.New(o.poolLimit),
		store:    NewBlockStore(o.db),
		clock:    o.clock,
		logger:   logger,
		metrics:  o.metrics,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	genesis, err := l.mintLocked(o.genProof, o.genPrev)
	if err != nil {
		return nil, fmt.Errorf("create genesis: %w", err)
	}
	l.logger.Info().
		Str("hash", l.tipHash).
		Float64("timestamp", genesis.Timestamp).
		Msg("Genesis block created")
	return l, nil
}

// AddTransaction appends a transaction to the pending pool and returns the
// index of the block that will include it. Fields are not validated; run
// block.ValidateTransaction at the API boundary. A non-finite amount
// cannot be serialized, so the next mint halts the ledger.
func (l *Ledger) AddTransaction(sender, recipient string, amount float64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.pool.Push(block.Transaction{Sender: sender, Recipient: recipient, Amount: amount})
	l.metrics.PendingChanged(n)
	return l.nextIndexLocked()
}

// SubmitTransaction is AddTransaction for external callers: it honours
// the pool limit and refuses work once the ledger has halted.
func (l *Ledger) SubmitTransaction(t block.Transaction) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.halted != nil {
		return 0, l.halted
	}
	n, err := l.pool.Add(t)
	if err != nil {
		return 0, err
	}
	l.metrics.PendingChanged(n)
	return l.nextIndexLocked(), nil
}

// MintBlock seals every pending transaction into a new block and appends
// it. An empty previousHash links the block to the current tail. On error
// neither the chain nor the pending pool changes. A serialization failure
// also halts the ledger; the error wraps both ErrHalted and
// block.ErrSerialization.
func (l *Ledger) MintBlock(proof uint64, previousHash string) (*block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.halted != nil {
		return nil, l.halted
	}
	if len(l.chain) == 0 {
		return nil, ErrEmptyChain
	}
	return l.mintLocked(proof, previousHash)
}

// MintOnTip is MintBlock guarded by an expected tail hash. It fails with
// ErrStaleTip when the tail moved so a miner can discard work done against
// an outdated chain. extra transactions are sealed after the pending ones
// and never enter the pool, so a failed mint leaves no trace of them.
func (l *Ledger) MintOnTip(proof uint64, tipHash string, extra ...block.Transaction) (*block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.halted != nil {
		return nil, l.halted
	}
	if len(l.chain) == 0 {
		return nil, ErrEmptyChain
	}
	if tipHash != l.tipHash {
		return nil, fmt.Errorf("%w: have %s, want %s", ErrStaleTip, l.tipHash, tipHash)
	}
	return l.mintLocked(proof, tipHash, extra...)
}

func (l *Ledger) mintLocked(proof uint64, previousHash string, extra ...block.Transaction) (*block.Block, error) {
	var index uint64 = 1
	linked := true
	if len(l.chain) > 0 {
		index = l.chain[len(l.chain)-1].Index + 1
		if previousHash == "" {
			previousHash = l.tipHash
		}
		linked = previousHash == l.tipHash
	}

	txs := append(l.pool.Snapshot(), extra...)
	blk := block.NewBlock(index, block.Timestamp(l.clock()), txs, proof, previousHash)
	hash, err := block.Hash(blk)
	if err != nil {
		if errors.Is(err, block.ErrSerialization) && len(l.chain) > 0 {
			// Every later block would carry the same pending transaction.
			l.halted = fmt.Errorf("%w: mint block %d: %w", ErrHalted, index, err)
			l.logger.Error().Err(err).Uint64("index", index).Msg("Pending transactions cannot be serialized, ledger halted")
			return nil, l.halted
		}
		return nil, fmt.Errorf("mint block %d: %w", index, err)
	}
	if err := l.store.PutBlock(blk, hash); err != nil {
		return nil, fmt.Errorf("index block %d: %w", index, err)
	}

	l.chain = append(l.chain, blk)
	l.tipHash = hash
	if !linked {
		l.unlinked[index] = struct{}{}
		l.logger.Warn().
			Uint64("index", index).
			Str("previous_hash", previousHash).
			Msg("Block minted with caller-supplied previous hash")
	}
	l.pool.Drain()

	l.metrics.BlockMinted(index, len(blk.Transactions))
	l.metrics.PendingChanged(0)
	l.logger.Debug().
		Uint64("index", index).
		Uint64("proof", proof).
		Int("txs", len(blk.Transactions)).
		Str("hash", hash).
		Msg("Block minted")
	return blk.Clone(), nil
}

func (l *Ledger) nextIndexLocked() uint64 {
	if len(l.chain) == 0 {
		return 1
	}
	return l.chain[len(l.chain)-1].Index + 1
}

// LastBlock returns a copy of the tail block.
func (l *Ledger) LastBlock() (*block.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.chain) == 0 {
		return nil, ErrEmptyChain
	}
	return l.chain[len(l.chain)-1].Clone(), nil
}

// Tip returns a copy of the tail block together with its hash.
func (l *Ledger) Tip() (*block.Block, string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.chain) == 0 {
		return nil, "", ErrEmptyChain
	}
	return l.chain[len(l.chain)-1].Clone(), l.tipHash, nil
}

// Chain returns a copy of every block in order.
func (l *Ledger) Chain() []*block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*block.Block, len(l.chain))
	for i, b := range l.chain {
		out[i] = b.Clone()
	}
	return out
}

// Len returns the number of blocks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Pending returns a copy of the pending transactions in insertion order.
func (l *Ledger) Pending() []block.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pool.Snapshot()
}

// PendingTransaction looks up a pending transaction by content ID.
func (l *Ledger) PendingTransaction(id types.Hash) (block.Transaction, bool) {
	return l.pool.Get(id)
}

// BlockByIndex returns the block with the given 1-based index.
func (l *Ledger) BlockByIndex(index uint64) (*block.Block, error) {
	blk, err := l.store.GetBlockByIndex(index)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: block %d", ErrNotFound, index)
	}
	return blk, err
}

// BlockByHash returns the block whose canonical hash is hash.
func (l *Ledger) BlockByHash(hash string) (*block.Block, error) {
	blk, err := l.store.GetBlock(hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: block %s", ErrNotFound, hash)
	}
	return blk, err
}

// TransactionByID returns a minted transaction and where it was recorded.
// Identical transfers share an ID; the most recently minted one wins.
func (l *Ledger) TransactionByID(id types.Hash) (block.Transaction, TxLocation, error) {
	loc, err := l.store.GetTxLocation(id)
	if errors.Is(err, storage.ErrNotFound) {
		return block.Transaction{}, TxLocation{}, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
	}
	if err != nil {
		return block.Transaction{}, TxLocation{}, err
	}
	blk, err := l.BlockByIndex(loc.BlockIndex)
	if err != nil {
		return block.Transaction{}, TxLocation{}, err
	}
	if loc.Position >= len(blk.Transactions) {
		return block.Transaction{}, TxLocation{}, fmt.Errorf("%w: tx position %d out of range", ErrBrokenChain, loc.Position)
	}
	return blk.Transactions[loc.Position], loc, nil
}

// Verify walks the chain checking indexes and hash links. Blocks minted
// with a caller-supplied previous hash are exempt from the link check.
// A failure halts the ledger: later mints and submissions return ErrHalted.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.halted != nil {
		return l.halted
	}
	if err := l.verifyLocked(); err != nil {
		l.halted = fmt.Errorf("%w: %v", ErrHalted, err)
		l.logger.Error().Err(err).Msg("Chain verification failed, ledger halted")
		return err
	}
	return nil
}

// Halted reports whether the ledger stopped accepting work.
func (l *Ledger) Halted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.halted != nil
}

func (l *Ledger) verifyLocked() error {
	if len(l.chain) == 0 {
		return fmt.Errorf("%w: %v", ErrBrokenChain, ErrEmptyChain)
	}
	var prevHash string
	for i, blk := range l.chain {
		if blk.Index != uint64(i+1) {
			return fmt.Errorf("%w: block at position %d has index %d", ErrBrokenChain, i, blk.Index)
		}
		if i > 0 {
			if _, exempt := l.unlinked[blk.Index]; !exempt && blk.PreviousHash != prevHash {
				return fmt.Errorf("%w: block %d previous hash %s, want %s", ErrBrokenChain, blk.Index, blk.PreviousHash, prevHash)
			}
		}
		h, err := block.Hash(blk)
		if err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrBrokenChain, blk.Index, err)
		}
		prevHash = h
	}
	if prevHash != l.tipHash {
		return fmt.Errorf("%w: tip hash %s, recomputed %s", ErrBrokenChain, l.tipHash, prevHash)
	}
	return nil
}
