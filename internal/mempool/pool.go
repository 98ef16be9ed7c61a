// Package mempool holds transactions waiting for inclusion in the next block.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Mempool errors.
var (
	ErrPoolFull = errors.New("mempool is full")
)

// Pool is an ordered list of pending transactions. Insertion order is
// preserved and becomes the order of the transactions in the minted block.
// Duplicates are allowed: two identical transfers are two transfers.
type Pool struct {
	mu      sync.RWMutex
	txs     []block.Transaction
	maxSize int // 0 = unlimited.
}

// New creates a new pool. maxSize <= 0 means no limit.
func New(maxSize int) *Pool {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Pool{maxSize: maxSize}
}

// Add appends a transaction and returns the new pool size.
func (p *Pool) Add(t block.Transaction) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.maxSize > 0 && len(p.txs) >= p.maxSize {
		return len(p.txs), fmt.Errorf("%w: %d transactions", ErrPoolFull, p.maxSize)
	}
	p.txs = append(p.txs, t)
	return len(p.txs), nil
}

// Push appends a transaction regardless of the size limit and returns
// the new pool size. The ledger's own AddTransaction path uses it.
func (p *Pool) Push(t block.Transaction) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, t)
	return len(p.txs)
}

// Snapshot returns a copy of the pending transactions in insertion order.
func (p *Pool) Snapshot() []block.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]block.Transaction, len(p.txs))
	copy(out, p.txs)
	return out
}

// Drain removes and returns every pending transaction in one step.
func (p *Pool) Drain() []block.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.txs
	p.txs = nil
	if out == nil {
		out = []block.Transaction{}
	}
	return out
}

// Count returns the number of pending transactions.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Get looks up a pending transaction by its content ID. The first match
// in insertion order is returned.
func (p *Pool) Get(id types.Hash) (block.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.txs {
		tid, err := t.ID()
		if err == nil && tid == id {
			return t, true
		}
	}
	return block.Transaction{}, false
}

// MaxSize returns the configured capacity (0 = unlimited).
func (p *Pool) MaxSize() int {
	return p.maxSize
}
