package routers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"compass-api/internal/gateway"
	"compass-api/internal/middleware"
	"compass-api/internal/shared"
	"compass-api/internal/tools"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticAuth struct {
	secret  string
	account string
}

func (a staticAuth) Authenticate(_ context.Context, candidate string) (string, error) {
	if candidate == a.secret {
		return a.account, nil
	}
	return "", shared.ErrUnauthorized
}

type testGoals struct{}

func (testGoals) Create(_ context.Context, _ string, in shared.GoalInput) (*shared.GoalSummary, error) {
	return &shared.GoalSummary{ID: "goal_1", Title: in.Title, Category: in.Category, Status: "active"}, nil
}

func (testGoals) List(context.Context, string, string) ([]shared.GoalSummary, error) {
	return nil, nil
}

type testJournal struct{}

func (testJournal) CreateEntry(context.Context, string, shared.EntryInput) (*shared.EntrySummary, error) {
	return &shared.EntrySummary{ID: "ent_1"}, nil
}

func (testJournal) ListEntries(context.Context, string, int) ([]shared.EntrySummary, error) {
	return nil, nil
}

type testCategories struct{}

func (testCategories) List(context.Context, string) ([]shared.Category, error) {
	return []shared.Category{{Name: "health", Label: "Health"}}, nil
}

func newGatewayServer(t *testing.T, heartbeat time.Duration) *httptest.Server {
	t.Helper()
	log := zap.NewNop().Sugar()

	registry := tools.NewRegistry()
	dispatcher := tools.NewDispatcher(registry, testGoals{}, testJournal{}, testCategories{}, log)
	gw := gateway.NewHandler(staticAuth{secret: "ck_test_secret", account: "acc_1"}, registry, dispatcher, log)

	e := echo.New()
	base := e.Group("")
	base.Use(middleware.NewTrackMiddleware(log))
	RegisterGatewayRoutes(base, gw, heartbeat, log)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func postRPC(t *testing.T, srv *httptest.Server, apiKey, body string) gateway.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var resp gateway.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	return resp
}

func TestRPCToolsListRoundTrip(t *testing.T) {
	srv := newGatewayServer(t, time.Minute)

	resp := postRPC(t, srv, "ck_test_secret", `{"jsonrpc":"2.0","id":"req-42","method":"tools/list"}`)
	assert.Equal(t, "req-42", resp.ID)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	list, ok := result["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 5)
}

func TestRPCBearerHeaderCarrier(t *testing.T) {
	srv := newGatewayServer(t, time.Minute)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ck_test_secret")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var resp gateway.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Nil(t, resp.Error)
	assert.Equal(t, float64(1), resp.ID)
}

func TestRPCMissingAndInvalidCredential(t *testing.T) {
	srv := newGatewayServer(t, time.Minute)

	resp := postRPC(t, srv, "", `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, gateway.CodeCredentialRequired, resp.Error.Code)

	resp = postRPC(t, srv, "ck_wrong", `{"jsonrpc":"2.0","id":"b","method":"tools/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, gateway.CodeInvalidCredential, resp.Error.Code)
}

func TestRPCCreateGoalScenario(t *testing.T) {
	srv := newGatewayServer(t, time.Minute)

	resp := postRPC(t, srv, "ck_test_secret",
		`{"jsonrpc":"2.0","id":"c1","method":"tools/call","params":{"name":"create_goal","arguments":{"title":"Run 5k","category":"health","target_date":"2025-01-01"}}}`)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Content, 1)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, `"success":true`)
	assert.Contains(t, result.Content[0].Text, "Run 5k")

	// Missing category is a tool-level error, not a transport fault.
	resp = postRPC(t, srv, "ck_test_secret",
		`{"jsonrpc":"2.0","id":"c2","method":"tools/call","params":{"name":"create_goal","arguments":{"title":"Run 5k"}}}`)
	require.Nil(t, resp.Error)
	raw, err = json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "category")
}

func TestCatalogProbeMatchesToolsList(t *testing.T) {
	srv := newGatewayServer(t, time.Minute)

	// Unauthenticated probe.
	res, err := http.Get(srv.URL + "/mcp/tools")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var probe map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&probe))

	rpc := postRPC(t, srv, "ck_test_secret", `{"jsonrpc":"2.0","id":"x","method":"tools/list"}`)
	rpcRaw, err := json.Marshal(rpc.Result)
	require.NoError(t, err)
	probeRaw, err := json.Marshal(probe)
	require.NoError(t, err)
	assert.JSONEq(t, string(rpcRaw), string(probeRaw))
}

func TestPushChannelRejectsInvalidCredential(t *testing.T) {
	srv := newGatewayServer(t, 10*time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/mcp/sse", nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "ck_wrong")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	// Connection closes before any event is emitted.
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.NotContains(t, res.Header.Get("Content-Type"), "text/event-stream")
}

func TestPushChannelAnnouncesThenHeartbeats(t *testing.T) {
	srv := newGatewayServer(t, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/mcp/sse", nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "ck_test_secret")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(res.Body)
	readEvent := func() string {
		var b strings.Builder
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return b.String()
			}
			b.WriteString(line)
		}
	}

	first := readEvent()
	assert.Contains(t, first, "event: message")
	assert.Contains(t, first, `"method":"initialize"`)
	assert.Contains(t, first, "create_goal")

	second := readEvent()
	assert.Contains(t, second, "event: heartbeat")
	assert.NotContains(t, second, "initialize")
}
