package block

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrInvalidTransaction = errors.New("invalid transaction fields")
	ErrZeroIndex          = errors.New("block index must be >= 1")
	ErrEmptyPreviousHash  = errors.New("block previous hash is empty")
)

// ValidateTransaction checks the fields of a transaction submitted from
// outside the node. The ledger itself admits anything; callers at the API
// boundary run this first so malformed input never reaches the pool.
func ValidateTransaction(t Transaction) error {
	if strings.TrimSpace(t.Sender) == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidTransaction)
	}
	if !finite(t.Amount) {
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidTransaction)
	}
	if t.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidTransaction)
	}
	return nil
}

// Validate checks block structure. It does NOT verify the proof or the
// link to the previous block (see consensus and ledger for that).
func (b *Block) Validate() error {
	if b.Index == 0 {
		return ErrZeroIndex
	}
	if b.PreviousHash == "" {
		return ErrEmptyPreviousHash
	}
	if _, err := Encode(b); err != nil {
		return err
	}
	return nil
}
