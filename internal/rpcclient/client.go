// Package rpcclient provides a JSON-RPC 2.0 client for ledger nodes.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/internal/rpc"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, 10*time.Second)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
// Zero or negative timeouts fall back to 10s; use a context to bound
// long calls such as Mine instead.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int64       `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpc.Error      `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	return c.CallContext(context.Background(), method, params, result)
}

// CallContext is Call with a context bounding the HTTP round trip.
func (c *Client) CallContext(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// ── Typed helpers ───────────────────────────────────────────────────────

// Info calls chain_getInfo.
func (c *Client) Info(ctx context.Context) (*rpc.ChainInfoResult, error) {
	var res rpc.ChainInfoResult
	if err := c.CallContext(ctx, "chain_getInfo", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Blocks calls chain_getBlocks. limit 0 returns every block from `from`.
func (c *Client) Blocks(ctx context.Context, from uint64, limit int) (*rpc.BlocksResult, error) {
	var res rpc.BlocksResult
	if err := c.CallContext(ctx, "chain_getBlocks", rpc.RangeParam{From: from, Limit: limit}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BlockByIndex calls chain_getBlockByIndex.
func (c *Client) BlockByIndex(ctx context.Context, index uint64) (*rpc.BlockResult, error) {
	var res rpc.BlockResult
	if err := c.CallContext(ctx, "chain_getBlockByIndex", rpc.IndexParam{Index: index}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BlockByHash calls chain_getBlockByHash.
func (c *Client) BlockByHash(ctx context.Context, hash string) (*rpc.BlockResult, error) {
	var res rpc.BlockResult
	if err := c.CallContext(ctx, "chain_getBlockByHash", rpc.HashParam{Hash: hash}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Transaction calls chain_getTransaction.
func (c *Client) Transaction(ctx context.Context, id string) (*rpc.TxResult, error) {
	var res rpc.TxResult
	if err := c.CallContext(ctx, "chain_getTransaction", rpc.HashParam{Hash: id}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Verify calls chain_verify.
func (c *Client) Verify(ctx context.Context) (*rpc.VerifyResult, error) {
	var res rpc.VerifyResult
	if err := c.CallContext(ctx, "chain_verify", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Submit calls tx_submit.
func (c *Client) Submit(ctx context.Context, sender, recipient string, amount float64) (*rpc.TxSubmitResult, error) {
	var res rpc.TxSubmitResult
	params := rpc.TxSubmitParam{Sender: sender, Recipient: recipient, Amount: &amount}
	if err := c.CallContext(ctx, "tx_submit", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Pending calls mempool_getPending.
func (c *Client) Pending(ctx context.Context) ([]block.Transaction, error) {
	var res rpc.PendingResult
	if err := c.CallContext(ctx, "mempool_getPending", nil, &res); err != nil {
		return nil, err
	}
	return res.Transactions, nil
}

// Mine calls miner_mine.
func (c *Client) Mine(ctx context.Context) (*rpc.BlockResult, error) {
	var res rpc.BlockResult
	if err := c.CallContext(ctx, "miner_mine", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ValidProof calls pow_validate.
func (c *Client) ValidProof(ctx context.Context, lastProof, proof uint64) (bool, error) {
	var res rpc.ValidResult
	if err := c.CallContext(ctx, "pow_validate", rpc.ProofParam{LastProof: lastProof, Proof: proof}, &res); err != nil {
		return false, err
	}
	return res.Valid, nil
}

// SearchProof calls pow_search.
func (c *Client) SearchProof(ctx context.Context, lastProof uint64) (uint64, error) {
	var res rpc.SearchResult
	if err := c.CallContext(ctx, "pow_search", rpc.ProofParam{LastProof: lastProof}, &res); err != nil {
		return 0, err
	}
	return res.Proof, nil
}

// NodeID calls node_getID.
func (c *Client) NodeID(ctx context.Context) (string, error) {
	var res rpc.NodeIDResult
	if err := c.CallContext(ctx, "node_getID", nil, &res); err != nil {
		return "", err
	}
	return res.NodeID, nil
}
