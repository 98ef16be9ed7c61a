package consensus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
	"golang.org/x/sync/errgroup"
)

// PoW errors.
var (
	ErrBadDifficulty       = errors.New("difficulty must be in [1, 64] hex digits")
	ErrProofSpaceExhausted = errors.New("proof space exhausted")
	ErrInvalidProof        = errors.New("proof does not solve the puzzle")
)

// DefaultDifficulty is the number of leading '0' hex digits a proof hash
// must carry.
const DefaultDifficulty = 4

// cancelCheckMask sets how often the search polls for cancellation.
const cancelCheckMask = 0xFFFF

// PoW implements the proof-of-work puzzle. A proof p solves the puzzle for
// a previous proof q when SHA-256(decimal(q) ++ decimal(p)), written as
// hex, starts with Difficulty '0' characters.
// The engine holds no mutable state and is safe for concurrent use.
type PoW struct {
	Difficulty int // Leading zero hex digits required.

	// Threads controls the number of parallel search goroutines.
	// 0 or 1 = single-threaded (default). Each goroutine searches a
	// strided partition of the proof space.
	Threads int
}

// NewPoW creates a new PoW engine.
func NewPoW(difficulty, threads int) (*PoW, error) {
	if difficulty < 1 || difficulty > 2*types.HashSize {
		return nil, fmt.Errorf("%w: got %d", ErrBadDifficulty, difficulty)
	}
	if threads < 0 {
		threads = 0
	}
	return &PoW{Difficulty: difficulty, Threads: threads}, nil
}

// Valid reports whether proof solves the puzzle posed by lastProof.
func (p *PoW) Valid(lastProof, proof uint64) bool {
	buf := make([]byte, 0, 40)
	buf = strconv.AppendUint(buf, lastProof, 10)
	buf = strconv.AppendUint(buf, proof, 10)
	return crypto.SHA256(buf).HasZeroPrefix(p.Difficulty)
}

// Search returns the minimal non-negative proof that solves the puzzle
// posed by lastProof. It polls ctx every 65536 candidates and returns
// ctx.Err() when cancelled.
// If Threads > 1, the search runs in parallel goroutines; the result is
// still the minimal proof.
func (p *PoW) Search(ctx context.Context, lastProof uint64) (uint64, error) {
	if p.Difficulty < 1 || p.Difficulty > 2*types.HashSize {
		return 0, fmt.Errorf("%w: got %d", ErrBadDifficulty, p.Difficulty)
	}
	if p.Threads <= 1 {
		return p.searchSingle(ctx, lastProof)
	}
	return p.searchParallel(ctx, lastProof, p.Threads)
}

// searchSingle tests 0, 1, 2, ... in order.
func (p *PoW) searchSingle(ctx context.Context, lastProof uint64) (uint64, error) {
	prefix := strconv.AppendUint(nil, lastProof, 10)
	buf := make([]byte, len(prefix), len(prefix)+20)
	copy(buf, prefix)

	for proof := uint64(0); ; proof++ {
		if proof&cancelCheckMask == 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			default:
			}
		}

		buf = strconv.AppendUint(buf[:len(prefix)], proof, 10)
		if crypto.SHA256(buf).HasZeroPrefix(p.Difficulty) {
			return proof, nil
		}
		if proof == math.MaxUint64 {
			return 0, ErrProofSpaceExhausted
		}
	}
}

// searchParallel partitions the proof space by stride: goroutine i tests
// i, i+threads, i+2*threads, ... Each goroutine's first hit is the
// smallest in its partition, so a goroutine can stop as soon as its
// candidate passes the best proof found so far. Once every goroutine has
// stopped, best holds the global minimum.
func (p *PoW) searchParallel(ctx context.Context, lastProof uint64, threads int) (uint64, error) {
	prefix := strconv.AppendUint(nil, lastProof, 10)
	stride := uint64(threads)

	var best atomic.Uint64
	best.Store(math.MaxUint64)
	var found atomic.Bool

	var g errgroup.Group
	for i := 0; i < threads; i++ {
		start := uint64(i)
		g.Go(func() error {
			buf := make([]byte, len(prefix), len(prefix)+20)
			copy(buf, prefix)

			for n, iter := start, uint64(0); n < best.Load(); n, iter = n+stride, iter+1 {
				if iter&cancelCheckMask == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				buf = strconv.AppendUint(buf[:len(prefix)], n, 10)
				if crypto.SHA256(buf).HasZeroPrefix(p.Difficulty) {
					storeMin(&best, n)
					found.Store(true)
					return nil
				}
				if n > math.MaxUint64-stride {
					return nil
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	if !found.Load() {
		return 0, ErrProofSpaceExhausted
	}
	return best.Load(), nil
}

// storeMin lowers v to n if n is smaller.
func storeMin(v *atomic.Uint64, n uint64) {
	for {
		cur := v.Load()
		if n >= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}
