package jsonrpc2

import (
	"encoding/json"
)

// RPCRequest is the envelope for every rpc endpoint and for server-pushed
// notifications over the websocket (Notif true, no ID, no reply expected).
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      string          `json:"id,omitempty"`
	Notif   bool            `json:"-"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// RPCError carries rejections inside a 200 response. Code holds the
// http-ish status derived from the error taxonomy (StatusOf): deterministic
// rejections are 4xx, store trouble 503, the rest 500.
type RPCError struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Params  []*InputFieldError `json:"params,omitempty"`
}

// InputFieldError points a validation failure at the offending field.
type InputFieldError struct {
	Error string `json:"error"`
	Field string `json:"field"`
}
