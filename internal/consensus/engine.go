// Package consensus implements the proof-of-work puzzle that gates block
// minting.
package consensus

import "context"

// Engine is the interface for proof engines.
type Engine interface {
	// Valid reports whether proof solves the puzzle posed by lastProof.
	Valid(lastProof, proof uint64) bool
	// Search returns the smallest proof that solves the puzzle posed by
	// lastProof, or ctx.Err() if ctx is cancelled first.
	Search(ctx context.Context, lastProof uint64) (uint64, error)
}
