package consensus

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// VerifyProofs checks that every block after the first carries a proof
// that solves the puzzle posed by its predecessor's proof. The first
// block (genesis) is taken as given.
func VerifyProofs(engine Engine, blocks []*block.Block) error {
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if !engine.Valid(prev.Proof, cur.Proof) {
			return fmt.Errorf("%w: block %d proof %d after proof %d",
				ErrInvalidProof, cur.Index, cur.Proof, prev.Proof)
		}
	}
	return nil
}
