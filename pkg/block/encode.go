package block

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ErrSerialization is returned when a block holds a value that has no
// canonical encoding (NaN or infinite numbers).
var ErrSerialization = errors.New("block cannot be canonically encoded")

// canonicalTx and canonicalBlock fix the key order of the encoding.
// Fields are declared in lexical key order; encoding/json emits struct
// fields in declaration order, so the output never depends on map
// iteration or on the order a caller populated the fields.
type canonicalTx struct {
	Amount    float64 `json:"amount"`
	Recipient string  `json:"recipient"`
	Sender    string  `json:"sender"`
}

type canonicalBlock struct {
	Index        uint64        `json:"index"`
	PreviousHash string        `json:"previous_hash"`
	Proof        uint64        `json:"proof"`
	Timestamp    float64       `json:"timestamp"`
	Transactions []canonicalTx `json:"transactions"`
}

// Encode returns the canonical byte form of a block: compact JSON with
// keys in lexical order, numbers in shortest round-trip decimal form and
// no HTML escaping. Hashing and the JSON wire form both use it.
func Encode(b *Block) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil block", ErrSerialization)
	}
	if !finite(b.Timestamp) {
		return nil, fmt.Errorf("%w: block %d timestamp %v", ErrSerialization, b.Index, b.Timestamp)
	}

	cb := canonicalBlock{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Proof:        b.Proof,
		Timestamp:    b.Timestamp,
		Transactions: make([]canonicalTx, len(b.Transactions)),
	}
	for i, t := range b.Transactions {
		if !finite(t.Amount) {
			return nil, fmt.Errorf("%w: block %d tx %d amount %v", ErrSerialization, b.Index, i, t.Amount)
		}
		cb.Transactions[i] = t.canonical()
	}
	return marshalCanonical(cb)
}

// EncodeTransaction returns the canonical byte form of a transaction.
func EncodeTransaction(t Transaction) ([]byte, error) {
	if !finite(t.Amount) {
		return nil, fmt.Errorf("%w: amount %v", ErrSerialization, t.Amount)
	}
	return marshalCanonical(t.canonical())
}

// Hash returns the lowercase hex SHA-256 digest of the canonical encoding.
func Hash(b *Block) (string, error) {
	data, err := Encode(b)
	if err != nil {
		return "", err
	}
	return crypto.SHA256Hex(data), nil
}

// MustHash is like Hash but panics on error. Only for blocks known to be
// encodable, such as genesis blocks and test fixtures.
func MustHash(b *Block) string {
	h, err := Hash(b)
	if err != nil {
		panic(err)
	}
	return h
}

// ID returns the BLAKE3 content identifier of a transaction.
func (t Transaction) ID() (types.Hash, error) {
	data, err := EncodeTransaction(t)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.ID(data), nil
}

// MarshalJSON encodes the block in its canonical form.
func (b *Block) MarshalJSON() ([]byte, error) {
	return Encode(b)
}

// MarshalJSON encodes the transaction in its canonical form.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return EncodeTransaction(t)
}

func (t Transaction) canonical() canonicalTx {
	return canonicalTx{Amount: t.Amount, Recipient: t.Recipient, Sender: t.Sender}
}

func marshalCanonical(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
