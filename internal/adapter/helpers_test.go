package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcHandler answers one JSON-RPC call with a result or an error
type rpcHandler func(method string, params []json.RawMessage) (interface{}, *rpcError)

// newRPCServer serves JSON-RPC over HTTP, including batches. It counts requests received.
func newRPCServer(t *testing.T, handle rpcHandler) (*httptest.Server, *int64) {
	t.Helper()
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		body, _ := io.ReadAll(r.Body)
		body = bytes.TrimSpace(body)
		w.Header().Set("Content-Type", "application/json")

		respond := func(req rpcRequest) rpcResponse {
			result, rpcErr := handle(req.Method, req.Params)
			return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
		}

		if len(body) > 0 && body[0] == '[' {
			var reqs []rpcRequest
			if err := json.Unmarshal(body, &reqs); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			resps := make([]rpcResponse, len(reqs))
			for i, req := range reqs {
				resps[i] = respond(req)
			}
			_ = json.NewEncoder(w).Encode(resps)
			return
		}

		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(respond(req))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

// paramString decodes a string parameter
func paramString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("param is not a string: %s", raw)
	}
	return s
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
