package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"compass-api/internal/metrics"
	"compass-api/internal/shared"
	"compass-api/internal/tools"

	"go.uber.org/zap"
)

// Authenticator resolves a bearer secret to an account id. The credential
// store implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, candidate string) (string, error)
}

// Dispatcher executes one validated tool call. tools.Dispatcher implements it.
type Dispatcher interface {
	Invoke(ctx context.Context, accountID, name string, args map[string]any) (any, *tools.ToolError)
}

type methodFunc func(ctx context.Context, accountID string, req Request) Response

// Handler is the RPC gateway. It holds no per-request state; each envelope is
// authenticated and routed independently.
type Handler struct {
	auth       Authenticator
	registry   *tools.Registry
	dispatcher Dispatcher
	log        *zap.SugaredLogger

	methods map[string]methodFunc
}

func NewHandler(auth Authenticator, registry *tools.Registry, dispatcher Dispatcher, log *zap.SugaredLogger) *Handler {
	h := &Handler{
		auth:       auth,
		registry:   registry,
		dispatcher: dispatcher,
		log:        log,
	}
	h.methods = map[string]methodFunc{
		"initialize": h.initialize,
		"tools/list": h.toolsList,
		"tools/call": h.toolsCall,
	}
	return h
}

// Handle runs one envelope through authenticate -> route -> respond. secret
// is the extracted bearer credential; empty means neither carrier was
// present. The response is always a well-formed envelope regardless of the
// failure mode.
func (h *Handler) Handle(ctx context.Context, secret string, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorw("gateway panic", "method", req.Method, "panic", r)
			resp = errorResponse(req.ID, CodeInternalError, fmt.Sprintf("internal error: %v", r))
		}
		code := "ok"
		if resp.Error != nil {
			code = fmt.Sprintf("%d", resp.Error.Code)
		}
		metrics.RPCRequests.WithLabelValues(req.Method, code).Inc()
	}()

	if secret == "" {
		metrics.AuthFailures.WithLabelValues("rpc").Inc()
		return errorResponse(req.ID, CodeCredentialRequired, "credential required")
	}
	accountID, err := h.Authenticate(ctx, secret)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("rpc").Inc()
		return errorResponse(req.ID, CodeInvalidCredential, "invalid credential")
	}

	method, ok := h.methods[req.Method]
	if !ok {
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
	return method(ctx, accountID, req)
}

// Authenticate exposes credential verification for transports that run their
// own handshake, like the push channel.
func (h *Handler) Authenticate(ctx context.Context, secret string) (string, error) {
	if secret == "" {
		return "", shared.ErrUnauthorized
	}
	return h.auth.Authenticate(ctx, secret)
}

// InitializeResult is the static server identity returned by initialize and
// announced on push-channel open.
func (h *Handler) InitializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": shared.ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    shared.ServerName,
			"version": shared.ServerVersion,
		},
	}
}

// ToolList renders the catalog in wire shape. The unauthenticated catalog
// probe serves the identical payload.
func (h *Handler) ToolList() map[string]any {
	descriptors := h.registry.List()
	out := make([]map[string]any, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"inputSchema": d.InputSchema(),
		})
	}
	return map[string]any{"tools": out}
}

func (h *Handler) initialize(_ context.Context, _ string, req Request) Response {
	return resultResponse(req.ID, h.InitializeResult())
}

func (h *Handler) toolsList(_ context.Context, _ string, req Request) Response {
	return resultResponse(req.ID, h.ToolList())
}

func (h *Handler) toolsCall(ctx context.Context, accountID string, req Request) Response {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		// A malformed call shape is a tool-level problem, not a transport
		// fault: report it inside the result so the agent can correct itself.
		return resultResponse(req.ID, toolErrorResult(&tools.ToolError{Message: "tools/call requires {name, arguments} params"}))
	}

	result, terr := h.dispatcher.Invoke(ctx, accountID, params.Name, params.Arguments)
	if terr != nil {
		return resultResponse(req.ID, toolErrorResult(terr))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, fmt.Sprintf("internal error: %v", err))
	}
	return resultResponse(req.ID, callResult{
		Content: []textContent{{Type: "text", Text: string(raw)}},
	})
}

func toolErrorResult(terr *tools.ToolError) callResult {
	raw, _ := json.Marshal(terr)
	return callResult{
		Content: []textContent{{Type: "text", Text: string(raw)}},
		IsError: true,
	}
}
