package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ── Chain endpoints ─────────────────────────────────────────────────────

func (s *Server) handleChainGetInfo(_ *Request) (interface{}, *Error) {
	tip, tipHash, err := s.ledger.Tip()
	if err != nil {
		return nil, ledgerError(err)
	}
	return &ChainInfoResult{
		NodeID:     s.nodeID,
		Length:     s.ledger.Len(),
		TipIndex:   tip.Index,
		TipHash:    tipHash,
		Pending:    len(s.ledger.Pending()),
		Difficulty: s.engine.Difficulty,
		Halted:     s.ledger.Halted(),
	}, nil
}

func (s *Server) handleChainGetBlocks(req *Request) (interface{}, *Error) {
	var params RangeParam
	if req.Params != nil {
		if err := parseParams(req, &params); err != nil {
			return nil, err
		}
	}
	if params.Limit < 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "limit must not be negative"}
	}

	chain := s.ledger.Chain()
	n := uint64(len(chain))
	start := uint64(0)
	if params.From > 1 {
		start = min(params.From-1, n)
	}
	end := n
	if params.Limit > 0 && uint64(params.Limit) < n-start {
		end = start + uint64(params.Limit)
	}
	return &BlocksResult{Blocks: chain[start:end], Length: len(chain)}, nil
}

func (s *Server) handleChainGetBlockByIndex(req *Request) (interface{}, *Error) {
	var params IndexParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Index == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "index must be >= 1"}
	}

	blk, err := s.ledger.BlockByIndex(params.Index)
	if err != nil {
		return nil, ledgerError(err)
	}
	return blockResult(blk)
}

func (s *Server) handleChainGetBlockByHash(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if _, err := types.HexToHash(params.Hash); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid hash: must be 32-byte hex"}
	}

	blk, err := s.ledger.BlockByHash(params.Hash)
	if err != nil {
		return nil, ledgerError(err)
	}
	return blockResult(blk)
}

func (s *Server) handleChainGetTransaction(req *Request) (interface{}, *Error) {
	var params HashParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	id, err := types.HexToHash(params.Hash)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid hash: must be 32-byte hex"}
	}

	// Check the pending pool first.
	if t, ok := s.ledger.PendingTransaction(id); ok {
		return &TxResult{ID: id.String(), Transaction: t, Pending: true}, nil
	}

	t, loc, err := s.ledger.TransactionByID(id)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &TxResult{ID: id.String(), Transaction: t, Location: &loc}, nil
}

func (s *Server) handleChainVerify(_ *Request) (interface{}, *Error) {
	res := &VerifyResult{Valid: true}
	err := s.ledger.Verify()
	if err == nil {
		err = consensus.VerifyProofs(s.engine, s.ledger.Chain())
	}
	if err != nil {
		res.Valid = false
		res.Error = err.Error()
	}
	res.Halted = s.ledger.Halted()
	return res, nil
}

// ── Transactions ────────────────────────────────────────────────────────

func (s *Server) handleTxSubmit(req *Request) (interface{}, *Error) {
	var params TxSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	t, rpcErr := s.admit(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	index, err := s.ledger.SubmitTransaction(t)
	if err != nil {
		return nil, ledgerError(err)
	}
	id, _ := t.ID() // Admitted transactions are always encodable.
	return &TxSubmitResult{ID: id.String(), BlockIndex: index}, nil
}

// admit turns submitted params into a transaction that passed the policy.
func (s *Server) admit(p TxSubmitParam) (block.Transaction, *Error) {
	if p.Amount == nil {
		return block.Transaction{}, &Error{Code: CodeInvalidParams, Message: "invalid transaction fields: amount is required"}
	}
	t := block.Transaction{Sender: p.Sender, Recipient: p.Recipient, Amount: *p.Amount}
	if err := s.policy.Check(t); err != nil {
		return block.Transaction{}, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return t, nil
}

func (s *Server) handleMempoolGetPending(_ *Request) (interface{}, *Error) {
	txs := s.ledger.Pending()
	return &PendingResult{Count: len(txs), Transactions: txs}, nil
}

// ── Mining and proof-of-work ────────────────────────────────────────────

func (s *Server) handleMinerMine(ctx context.Context, _ *Request) (interface{}, *Error) {
	if s.miner == nil {
		return nil, &Error{Code: CodeUnavailable, Message: "mining is disabled on this node"}
	}
	blk, err := s.miner.Mine(ctx)
	if err != nil {
		return nil, ledgerError(err)
	}
	return blockResult(blk)
}

func (s *Server) handlePowValidate(req *Request) (interface{}, *Error) {
	var params ProofParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	return &ValidResult{Valid: s.engine.Valid(params.LastProof, params.Proof)}, nil
}

func (s *Server) handlePowSearch(ctx context.Context, req *Request) (interface{}, *Error) {
	var params ProofParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	proof, err := s.engine.Search(ctx, params.LastProof)
	if err != nil {
		if errors.Is(err, consensus.ErrProofSpaceExhausted) {
			return nil, &Error{Code: CodeNotFound, Message: err.Error()}
		}
		return nil, ledgerError(err)
	}
	return &SearchResult{Proof: proof}, nil
}

func blockResult(blk *block.Block) (interface{}, *Error) {
	res, err := NewBlockResult(blk)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("hash block: %v", err)}
	}
	return res, nil
}
