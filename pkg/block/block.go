// Package block defines the ledger's block and transaction records and
// their canonical encoding.
package block

import (
	"math"
	"time"
)

// Transaction moves Amount from Sender to Recipient. It carries no
// ownership semantics and is copied by value into the block that
// includes it.
type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

// Block is one link of the chain. A block never stores its own hash;
// use Hash to recompute it from the canonical content.
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    float64       `json:"timestamp"` // Seconds since the Unix epoch.
	Transactions []Transaction `json:"transactions"`
	Proof        uint64        `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// NewBlock creates a block. The transactions are copied so later changes
// to txs do not reach the block.
func NewBlock(index uint64, timestamp float64, txs []Transaction, proof uint64, previousHash string) *Block {
	return &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: copyTxs(txs),
		Proof:        proof,
		PreviousHash: previousHash,
	}
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	c.Transactions = copyTxs(b.Transactions)
	return &c
}

// Time returns the block timestamp as a time.Time.
func (b *Block) Time() time.Time {
	sec, frac := math.Modf(b.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Timestamp converts t to fractional seconds since the Unix epoch.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func copyTxs(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}
