package rpc

import (
	"github.com/Klingon-tech/klingnet-ledger/internal/ledger"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnavailable    = -32001 // Ledger halted, miner disabled, pool full.
	CodeStale          = -32002 // Chain tip moved during a search.
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// ── Param types ─────────────────────────────────────────────────────────

// HashParam is used by endpoints that take a single hash.
type HashParam struct {
	Hash string `json:"hash"`
}

// IndexParam is used by chain_getBlockByIndex.
type IndexParam struct {
	Index uint64 `json:"index"`
}

// RangeParam selects a window of blocks. Limit 0 means all remaining.
type RangeParam struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
}

// TxSubmitParam is used by tx_submit. Amount is a pointer so a missing
// amount can be told apart from zero.
type TxSubmitParam struct {
	Sender    string   `json:"sender"`
	Recipient string   `json:"recipient"`
	Amount    *float64 `json:"amount"`
}

// ProofParam is used by pow_validate and pow_search.
type ProofParam struct {
	LastProof uint64 `json:"lastProof"`
	Proof     uint64 `json:"proof"`
}

// ── Result types ────────────────────────────────────────────────────────

// BlockResult wraps a block with its recomputed hash.
type BlockResult struct {
	Hash  string       `json:"hash"`
	Block *block.Block `json:"block"`
}

// NewBlockResult builds a BlockResult, computing the block hash.
func NewBlockResult(b *block.Block) (*BlockResult, error) {
	h, err := block.Hash(b)
	if err != nil {
		return nil, err
	}
	return &BlockResult{Hash: h, Block: b}, nil
}

// ChainInfoResult is returned by chain_getInfo.
type ChainInfoResult struct {
	NodeID     string `json:"nodeId"`
	Length     int    `json:"length"`
	TipIndex   uint64 `json:"tipIndex"`
	TipHash    string `json:"tipHash"`
	Pending    int    `json:"pending"`
	Difficulty int    `json:"difficulty"`
	Halted     bool   `json:"halted"`
}

// BlocksResult is returned by chain_getBlocks.
type BlocksResult struct {
	Blocks []*block.Block `json:"blocks"`
	Length int            `json:"length"`
}

// TxResult is returned by chain_getTransaction.
type TxResult struct {
	ID          string             `json:"id"`
	Transaction block.Transaction  `json:"transaction"`
	Pending     bool               `json:"pending"`
	Location    *ledger.TxLocation `json:"location,omitempty"`
}

// TxSubmitResult is returned by tx_submit.
type TxSubmitResult struct {
	ID         string `json:"id"`
	BlockIndex uint64 `json:"blockIndex"`
}

// PendingResult is returned by mempool_getPending.
type PendingResult struct {
	Count        int                 `json:"count"`
	Transactions []block.Transaction `json:"transactions"`
}

// VerifyResult is returned by chain_verify.
type VerifyResult struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
	Halted bool   `json:"halted"`
}

// ValidResult is returned by pow_validate.
type ValidResult struct {
	Valid bool `json:"valid"`
}

// SearchResult is returned by pow_search.
type SearchResult struct {
	Proof uint64 `json:"proof"`
}

// NodeIDResult is returned by node_getID.
type NodeIDResult struct {
	NodeID string `json:"nodeId"`
}

// ── REST compatibility shapes ──────────────────────────────────────────

// MineResponse is returned by GET /mine.
type MineResponse struct {
	Message      string              `json:"message"`
	Index        uint64              `json:"index"`
	Transactions []block.Transaction `json:"transactions"`
	Proof        uint64              `json:"proof"`
	PreviousHash string              `json:"previous_hash"`
}

// ChainResponse is returned by GET /chain.
type ChainResponse struct {
	Chain  []*block.Block `json:"chain"`
	Length int            `json:"length"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}
