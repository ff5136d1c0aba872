package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"compass-api/internal/shared"
	"compass-api/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	accounts map[string]string
}

func (f *fakeAuth) Authenticate(_ context.Context, candidate string) (string, error) {
	if id, ok := f.accounts[candidate]; ok {
		return id, nil
	}
	return "", shared.ErrUnauthorized
}

type fakeDispatcher struct {
	result any
	terr   *tools.ToolError
	panics bool

	gotAccount string
	gotName    string
	gotArgs    map[string]any
}

func (f *fakeDispatcher) Invoke(_ context.Context, accountID, name string, args map[string]any) (any, *tools.ToolError) {
	f.gotAccount = accountID
	f.gotName = name
	f.gotArgs = args
	if f.panics {
		panic("collaborator exploded")
	}
	return f.result, f.terr
}

func newTestHandler(d *fakeDispatcher) *Handler {
	auth := &fakeAuth{accounts: map[string]string{"ck_valid_secret": "acc_1"}}
	return NewHandler(auth, tools.NewRegistry(), d, zap.NewNop().Sugar())
}

func request(id any, method string, params string) Request {
	req := Request{JSONRPC: "2.0", ID: id, Method: method}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

func assertEnvelope(t *testing.T, resp Response, id any) {
	t.Helper()
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, id, resp.ID)
	// Exactly one of result/error.
	if resp.Error != nil {
		assert.Nil(t, resp.Result)
	} else {
		assert.NotNil(t, resp.Result)
	}
}

func TestHandleMissingCredential(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	resp := h.Handle(context.Background(), "", request("req-1", "tools/list", ""))
	assertEnvelope(t, resp, "req-1")
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeCredentialRequired, resp.Error.Code)
}

func TestHandleInvalidCredential(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	resp := h.Handle(context.Background(), "ck_wrong", request(float64(7), "tools/list", ""))
	assertEnvelope(t, resp, float64(7))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidCredential, resp.Error.Code)
}

func TestHandleMethodNotFound(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	resp := h.Handle(context.Background(), "ck_valid_secret", request("req-2", "resources/list", ""))
	assertEnvelope(t, resp, "req-2")
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "resources/list")
}

func TestHandleInitialize(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	resp := h.Handle(context.Background(), "ck_valid_secret", request("init-1", "initialize", ""))
	assertEnvelope(t, resp, "init-1")
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, shared.ProtocolVersion, result["protocolVersion"])
	assert.Contains(t, result, "capabilities")
	assert.Contains(t, result, "serverInfo")
}

func TestHandleToolsList(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	resp := h.Handle(context.Background(), "ck_valid_secret", request("list-1", "tools/list", ""))
	assertEnvelope(t, resp, "list-1")
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	list, ok := result["tools"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, list, 5)
	assert.Equal(t, "create_goal", list[0]["name"])
}

func TestHandleToolsCall(t *testing.T) {
	d := &fakeDispatcher{result: map[string]any{"success": true, "title": "Run 5k"}}
	h := newTestHandler(d)

	resp := h.Handle(context.Background(), "ck_valid_secret", request("call-1", "tools/call",
		`{"name":"create_goal","arguments":{"title":"Run 5k","category":"health"}}`))
	assertEnvelope(t, resp, "call-1")
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(callResult)
	require.True(t, ok)
	require.Len(t, result.Content, 1)
	assert.False(t, result.IsError)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "Run 5k")

	assert.Equal(t, "acc_1", d.gotAccount)
	assert.Equal(t, "create_goal", d.gotName)
}

func TestHandleToolsCallToolError(t *testing.T) {
	d := &fakeDispatcher{terr: &tools.ToolError{Message: "missing required argument: category", Field: "category"}}
	h := newTestHandler(d)

	resp := h.Handle(context.Background(), "ck_valid_secret", request("call-2", "tools/call",
		`{"name":"create_goal","arguments":{"title":"Run 5k"}}`))
	assertEnvelope(t, resp, "call-2")
	// Tool-level failure is a successful-looking result, not a transport fault.
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(callResult)
	require.True(t, ok)
	assert.True(t, result.IsError)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))
	assert.Equal(t, "category", payload["field"])
}

func TestHandleToolsCallBadParams(t *testing.T) {
	h := newTestHandler(&fakeDispatcher{})

	resp := h.Handle(context.Background(), "ck_valid_secret", request("call-3", "tools/call", `"not an object"`))
	assertEnvelope(t, resp, "call-3")
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(callResult)
	require.True(t, ok)
	assert.True(t, result.IsError)
}

func TestHandleRecoversPanics(t *testing.T) {
	d := &fakeDispatcher{panics: true}
	h := newTestHandler(d)

	resp := h.Handle(context.Background(), "ck_valid_secret", request("boom", "tools/call",
		`{"name":"create_goal","arguments":{}}`))
	assertEnvelope(t, resp, "boom")
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "collaborator exploded")
}
