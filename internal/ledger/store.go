package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/internal/storage"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Key prefixes for the block index.
var (
	prefixBlock   = []byte("b/") // b/<hash(32)> -> header JSON
	prefixBlockTx = []byte("t/") // t/<hash(32)><position(4)><part(4)> -> canonical tx JSON chunk
	prefixIndex   = []byte("i/") // i/<index(8)> -> hash(32)
	prefixTx      = []byte("x/") // x/<txid(32)> -> index(8) + position(4)
)

// txChunkSize bounds every stored value well under the badger backend's
// per-value limit, whatever the size of a transaction.
const txChunkSize = 512 << 10

// storedHeader is a block without its transactions.
type storedHeader struct {
	Index        uint64  `json:"index"`
	PreviousHash string  `json:"previous_hash"`
	Proof        uint64  `json:"proof"`
	Timestamp    float64 `json:"timestamp"`
	TxCount      int     `json:"tx_count"`
}

// TxLocation identifies where a transaction was recorded.
type TxLocation struct {
	BlockIndex uint64 `json:"blockIndex"`
	Position   int    `json:"position"`
}

// BlockStore indexes minted blocks by hash, index and transaction ID.
// It is a lookup index only; the ledger's in-memory chain stays the
// source of truth.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore creates a block store backed by the given database.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// PutBlock stores a block under its hash and indexes its height and
// transactions. The header and each transaction are separate keys, so
// no single value grows with the block. When the database supports
// batches all keys are written together.
func (bs *BlockStore) PutBlock(blk *block.Block, hash string) error {
	h, err := types.HexToHash(hash)
	if err != nil {
		return fmt.Errorf("block hash: %w", err)
	}
	header, err := json.Marshal(storedHeader{
		Index:        blk.Index,
		PreviousHash: blk.PreviousHash,
		Proof:        blk.Proof,
		Timestamp:    blk.Timestamp,
		TxCount:      len(blk.Transactions),
	})
	if err != nil {
		return fmt.Errorf("block header encode: %w", err)
	}

	w := bs.writer()
	defer w.Discard()

	if err := w.Put(blockKey(h), header); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	if err := w.Put(indexKey(blk.Index), h[:]); err != nil {
		return fmt.Errorf("index put: %w", err)
	}
	for i, t := range blk.Transactions {
		data, err := block.EncodeTransaction(t)
		if err != nil {
			return fmt.Errorf("tx %d encode: %w", i, err)
		}
		for part := 0; part*txChunkSize < len(data); part++ {
			end := min((part+1)*txChunkSize, len(data))
			if err := w.Put(blockTxKey(h, i, part), data[part*txChunkSize:end]); err != nil {
				return fmt.Errorf("tx %d put: %w", i, err)
			}
		}

		id, err := t.ID()
		if err != nil {
			return fmt.Errorf("tx %d id: %w", i, err)
		}
		val := make([]byte, 12)
		binary.BigEndian.PutUint64(val[:8], blk.Index)
		binary.BigEndian.PutUint32(val[8:], uint32(i))
		if err := w.Put(txKey(id), val); err != nil {
			return fmt.Errorf("tx index put %s: %w", id, err)
		}
	}
	return w.Commit()
}

// GetBlock retrieves a block by its hex hash.
func (bs *BlockStore) GetBlock(hash string) (*block.Block, error) {
	h, err := types.HexToHash(hash)
	if err != nil {
		return nil, fmt.Errorf("block hash: %w", err)
	}
	return bs.getBlock(h)
}

// GetBlockByIndex retrieves a block by its 1-based index.
func (bs *BlockStore) GetBlockByIndex(index uint64) (*block.Block, error) {
	hashBytes, err := bs.db.Get(indexKey(index))
	if err != nil {
		return nil, fmt.Errorf("index get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return nil, fmt.Errorf("corrupt index entry: got %d bytes, want %d", len(hashBytes), types.HashSize)
	}
	var h types.Hash
	copy(h[:], hashBytes)
	return bs.getBlock(h)
}

// GetTxLocation returns the block index and position of a transaction.
func (bs *BlockStore) GetTxLocation(id types.Hash) (TxLocation, error) {
	data, err := bs.db.Get(txKey(id))
	if err != nil {
		return TxLocation{}, fmt.Errorf("tx index get: %w", err)
	}
	if len(data) != 12 {
		return TxLocation{}, fmt.Errorf("corrupt tx index: got %d bytes, want 12", len(data))
	}
	return TxLocation{
		BlockIndex: binary.BigEndian.Uint64(data[:8]),
		Position:   int(binary.BigEndian.Uint32(data[8:])),
	}, nil
}

func (bs *BlockStore) getBlock(h types.Hash) (*block.Block, error) {
	data, err := bs.db.Get(blockKey(h))
	if err != nil {
		return nil, fmt.Errorf("block get: %w", err)
	}
	var hdr storedHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("block header unmarshal: %w", err)
	}

	txs := make([]block.Transaction, 0, hdr.TxCount)
	var buf []byte
	flush := func() error {
		var t block.Transaction
		if err := json.Unmarshal(buf, &t); err != nil {
			return fmt.Errorf("tx %d unmarshal: %w", len(txs), err)
		}
		txs = append(txs, t)
		buf = buf[:0]
		return nil
	}
	prefix := blockTxKey(h, 0, 0)[:len(prefixBlockTx)+types.HashSize]
	pos := -1
	err = bs.db.ForEach(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+8 {
			return fmt.Errorf("corrupt tx key: got %d bytes", len(key))
		}
		p := int(binary.BigEndian.Uint32(key[len(prefix):]))
		if p != pos {
			if pos >= 0 {
				if err := flush(); err != nil {
					return err
				}
			}
			if p != len(txs) {
				return fmt.Errorf("corrupt block: tx %d missing", len(txs))
			}
			pos = p
		}
		buf = append(buf, value...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("block txs: %w", err)
	}
	if pos >= 0 {
		if err := flush(); err != nil {
			return nil, fmt.Errorf("block txs: %w", err)
		}
	}
	if len(txs) != hdr.TxCount {
		return nil, fmt.Errorf("corrupt block: %d transactions stored, header says %d", len(txs), hdr.TxCount)
	}

	return &block.Block{
		Index:        hdr.Index,
		Timestamp:    hdr.Timestamp,
		Transactions: txs,
		Proof:        hdr.Proof,
		PreviousHash: hdr.PreviousHash,
	}, nil
}

// writer returns a batch when the database supports one and a
// pass-through writer otherwise.
func (bs *BlockStore) writer() storage.Batch {
	if b, ok := bs.db.(storage.Batcher); ok {
		return b.NewBatch()
	}
	return directWriter{bs.db}
}

type directWriter struct{ db storage.DB }

func (d directWriter) Put(key, value []byte) error { return d.db.Put(key, value) }
func (d directWriter) Commit() error               { return nil }
func (d directWriter) Discard()                    {}

func blockKey(h types.Hash) []byte {
	key := make([]byte, len(prefixBlock)+types.HashSize)
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], h[:])
	return key
}

func blockTxKey(h types.Hash, pos, part int) []byte {
	key := make([]byte, len(prefixBlockTx)+types.HashSize+8)
	copy(key, prefixBlockTx)
	copy(key[len(prefixBlockTx):], h[:])
	binary.BigEndian.PutUint32(key[len(prefixBlockTx)+types.HashSize:], uint32(pos))
	binary.BigEndian.PutUint32(key[len(prefixBlockTx)+types.HashSize+4:], uint32(part))
	return key
}

func indexKey(index uint64) []byte {
	key := make([]byte, len(prefixIndex)+8)
	copy(key, prefixIndex)
	binary.BigEndian.PutUint64(key[len(prefixIndex):], index)
	return key
}

func txKey(id types.Hash) []byte {
	key := make([]byte, len(prefixTx)+types.HashSize)
	copy(key, prefixTx)
	copy(key[len(prefixTx):], id[:])
	return key
}
