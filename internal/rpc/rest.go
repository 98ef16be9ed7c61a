package rpc

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// REST compatibility routes. They mirror the classic single-node ledger
// HTTP surface and share validation with the JSON-RPC methods.

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeREST(w, http.StatusMethodNotAllowed, MessageResponse{Message: "use GET"})
		return
	}
	if s.miner == nil {
		writeREST(w, http.StatusServiceUnavailable, MessageResponse{Message: "mining is disabled on this node"})
		return
	}

	blk, err := s.miner.Mine(r.Context())
	if err != nil {
		rpcErr := ledgerError(err)
		status := http.StatusInternalServerError
		switch rpcErr.Code {
		case CodeStale:
			status = http.StatusConflict
		case CodeUnavailable:
			status = http.StatusServiceUnavailable
		}
		writeREST(w, status, MessageResponse{Message: rpcErr.Message})
		return
	}

	writeREST(w, http.StatusOK, MineResponse{
		Message:      "New Block Forged",
		Index:        blk.Index,
		Transactions: blk.Transactions,
		Proof:        blk.Proof,
		PreviousHash: blk.PreviousHash,
	})
}

func (s *Server) handleNewTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeREST(w, http.StatusMethodNotAllowed, MessageResponse{Message: "use POST"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil || len(body) > maxBodySize {
		writeREST(w, http.StatusBadRequest, MessageResponse{Message: "unreadable request body"})
		return
	}
	var params TxSubmitParam
	if err := json.Unmarshal(body, &params); err != nil {
		writeREST(w, http.StatusBadRequest, MessageResponse{Message: "invalid JSON"})
		return
	}
	t, rpcErr := s.admit(params)
	if rpcErr != nil {
		writeREST(w, http.StatusBadRequest, MessageResponse{Message: rpcErr.Message})
		return
	}

	index, err := s.ledger.SubmitTransaction(t)
	if err != nil {
		writeREST(w, http.StatusServiceUnavailable, MessageResponse{Message: err.Error()})
		return
	}
	writeREST(w, http.StatusCreated, MessageResponse{
		Message: "Transaction will be added to Block " + strconv.FormatUint(index, 10),
	})
}

func (s *Server) handleFullChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeREST(w, http.StatusMethodNotAllowed, MessageResponse{Message: "use GET"})
		return
	}
	chain := s.ledger.Chain()
	writeREST(w, http.StatusOK, ChainResponse{Chain: chain, Length: len(chain)})
}

func writeREST(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
