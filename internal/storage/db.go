// Package storage provides the key-value abstraction behind the ledger's
// block index.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")
	// ErrValueTooLarge is returned when a value exceeds the backend's
	// per-value limit.
	ErrValueTooLarge = errors.New("value too large")
)

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// ForEach iterates over all keys with the given prefix in key order.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch buffers writes and applies them on Commit. Discard releases the
// batch without applying anything; it is safe to call after Commit, so
// callers may defer it.
type Batch interface {
	Put(key, value []byte) error
	Commit() error
	Discard()
}

// Batcher is implemented by databases that support atomic batches.
type Batcher interface {
	NewBatch() Batch
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Open returns a fresh, empty database for the named backend. Both
// backends keep data in memory only; nothing survives the process.
func Open(backend string) (DB, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendBadger:
		return NewBadgerInMemory()
	default:
		return nil, errors.New("unknown storage backend " + backend)
	}
}
