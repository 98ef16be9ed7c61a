package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
)

// MaxBadgerValueSize is the largest value an in-memory Badger instance
// accepts. Values cannot spill to a value log without a disk, so the
// limit is Badger's value threshold ceiling.
const MaxBadgerValueSize = 1 << 20

// BadgerDB implements DB using Badger running in in-memory mode. Nothing
// is written to disk.
type BadgerDB struct {
	db *badger.DB
}

// NewBadgerInMemory opens an empty in-memory Badger instance.
func NewBadgerInMemory() (*BadgerDB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = badgerLogger{l: klog.Storage}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerDB{db: db}, nil
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not exist.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return val, nil
}

// Put stores a key-value pair.
func (b *BadgerDB) Put(key, value []byte) error {
	if err := checkValueSize(value); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// ForEach iterates over all keys with the given prefix in key order.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}

// NewBatch creates a batch backed by a Badger transaction. A batch that
// outgrows one transaction is committed in parts.
func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{db: b.db, txn: b.db.NewTransaction(true)}
}

type badgerBatch struct {
	db  *badger.DB
	txn *badger.Txn
}

func (bb *badgerBatch) Put(key, value []byte) error {
	if err := checkValueSize(value); err != nil {
		return err
	}
	err := bb.txn.Set(key, value)
	if errors.Is(err, badger.ErrTxnTooBig) {
		if err := bb.txn.Commit(); err != nil {
			return fmt.Errorf("badger commit: %w", err)
		}
		bb.txn = bb.db.NewTransaction(true)
		err = bb.txn.Set(key, value)
	}
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

func (bb *badgerBatch) Commit() error {
	if err := bb.txn.Commit(); err != nil {
		return fmt.Errorf("badger commit: %w", err)
	}
	return nil
}

func (bb *badgerBatch) Discard() {
	bb.txn.Discard()
}

// checkValueSize rejects oversized values before Badger sees them. The
// error carries only the size; Badger's own error embeds a hex dump.
func checkValueSize(value []byte) error {
	if len(value) > MaxBadgerValueSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrValueTooLarge, len(value), MaxBadgerValueSize)
	}
	return nil
}

// badgerLogger routes badger's internal messages to the storage logger.
// Badger is chatty at info level, so info becomes debug.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error().Msg(trimLine(format, args))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn().Msg(trimLine(format, args))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug().Msg(trimLine(format, args))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Trace().Msg(trimLine(format, args))
}

func trimLine(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
