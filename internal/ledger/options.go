package ledger

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
)

// Metrics receives ledger events. internal/metrics provides the
// Prometheus implementation.
type Metrics interface {
	BlockMinted(index uint64, txCount int)
	PendingChanged(count int)
}

type nopMetrics struct{}

func (nopMetrics) BlockMinted(uint64, int) {}
func (nopMetrics) PendingChanged(int)      {}

type options struct {
	clock     func() time.Time
	db        storage.DB
	poolLimit int
	logger    *zerolog.Logger
	metrics   Metrics
	genPrev   string
	genProof  uint64
}

// Option configures a Ledger.
type Option func(*options)

// WithClock sets the time source used to stamp new blocks.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithStore sets the database backing the block index.
func WithStore(db storage.DB) Option {
	return func(o *options) { o.db = db }
}

// WithPoolLimit caps the number of pending transactions accepted through
// SubmitTransaction. Zero means unlimited.
func WithPoolLimit(n int) Option {
	return func(o *options) { o.poolLimit = n }
}

// WithLogger sets the ledger logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithGenesis overrides the genesis block's previous hash and proof.
func WithGenesis(previousHash string, proof uint64) Option {
	return func(o *options) {
		o.genPrev = previousHash
		o.genProof = proof
	}
}
