// Package gateway exposes the tool catalog to external conversational agents
// over a JSON-RPC request/response path and an SSE push channel.
package gateway

import "encoding/json"

// Closed error-code set. Everything the gateway can fail with on the
// transport level maps to one of these; tool-level failures travel inside a
// result payload instead.
const (
	CodeCredentialRequired = -32000
	CodeInvalidCredential  = -32001
	CodeMethodNotFound     = -32601
	CodeInternalError      = -32603
)

// Request is one inbound envelope. ID is opaque to the gateway and echoed
// back verbatim.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response carries the same ID and exactly one of Result or Error.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func resultResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id any, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// callParams is the parameter shape tools/call requires.
type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// textContent wraps a tool result as the single text-typed content item the
// protocol uses for tool output.
type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}
