package mempool

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// DefaultMaxFieldLen is the maximum length of a sender or recipient in bytes.
const DefaultMaxFieldLen = 256

// Policy defines acceptance rules for transactions arriving from outside
// the node. The ledger itself admits anything; policy is applied by the
// API layer before a transaction is handed to it.
type Policy struct {
	MaxFieldLen int // Maximum sender/recipient length in bytes (0 = unlimited).
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxFieldLen: DefaultMaxFieldLen,
	}
}

// Check validates a transaction against policy rules.
func (p *Policy) Check(t block.Transaction) error {
	if err := block.ValidateTransaction(t); err != nil {
		return err
	}
	if p.MaxFieldLen > 0 {
		if len(t.Sender) > p.MaxFieldLen {
			return fmt.Errorf("%w: sender is %d bytes, max %d", block.ErrInvalidTransaction, len(t.Sender), p.MaxFieldLen)
		}
		if len(t.Recipient) > p.MaxFieldLen {
			return fmt.Errorf("%w: recipient is %d bytes, max %d", block.ErrInvalidTransaction, len(t.Recipient), p.MaxFieldLen)
		}
	}
	return nil
}
