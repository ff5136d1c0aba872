package routers

import (
	"encoding/json"
	"net/http"
	"time"

	"compass-api/internal/gateway"
	"compass-api/internal/setup"
	"compass-api/internal/shared"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type GatewayRouter struct {
	gw   *gateway.Handler
	push *gateway.PushChannel
	log  *zap.SugaredLogger
}

func NewGatewayRouter(gw *gateway.Handler, heartbeat time.Duration, log *zap.SugaredLogger) *GatewayRouter {
	return &GatewayRouter{
		gw:   gw,
		push: gateway.NewPushChannel(gw, heartbeat),
		log:  log,
	}
}

// HandleRPC serves the request/response path. Whatever goes wrong, the
// response is a well-formed envelope with HTTP 200; status codes carry no
// protocol meaning on this surface.
func (gr *GatewayRouter) HandleRPC(cc echo.Context) error {
	c := cc.(*setup.Context)

	body, err := readRequestBody(c)
	if err != nil {
		return c.JSON(http.StatusOK, gateway.Response{
			JSONRPC: "2.0",
			Error:   &gateway.RPCError{Code: gateway.CodeInternalError, Message: "failed to read request body"},
		})
	}

	var req gateway.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusOK, gateway.Response{
			JSONRPC: "2.0",
			Error:   &gateway.RPCError{Code: gateway.CodeInternalError, Message: "malformed request envelope"},
		})
	}

	secret, err := shared.ExtractAPIKey(c)
	if err != nil {
		secret = ""
	}

	resp := gr.gw.Handle(c.Request().Context(), secret, req)
	return c.JSON(http.StatusOK, resp)
}

// HandlePush opens the long-lived event stream. Authentication failures
// close the connection before a single event is written.
func (gr *GatewayRouter) HandlePush(cc echo.Context) error {
	c := cc.(*setup.Context)

	secret, err := shared.ExtractAPIKey(c)
	if err != nil {
		return c.String(http.StatusUnauthorized, "unauthorized")
	}
	accountID, err := gr.gw.Authenticate(c.Request().Context(), secret)
	if err != nil {
		return c.String(http.StatusUnauthorized, "unauthorized")
	}
	c.Log = c.Log.With("account_id", accountID)
	c.Log.Infow("push channel opened")

	setupSSEHeaders(c)
	err = gr.push.Serve(c.Request().Context(), c.Response())
	c.Log.Infow("push channel closed")
	return err
}

// HandleCatalog is the unauthenticated, read-only tool catalog probe. Its
// payload is identical to tools/list.
func (gr *GatewayRouter) HandleCatalog(cc echo.Context) error {
	c := cc.(*setup.Context)
	return c.JSON(http.StatusOK, gr.gw.ToolList())
}

// RegisterGatewayRoutes registers all gateway routes
func RegisterGatewayRoutes(e *echo.Group, gw *gateway.Handler, heartbeat time.Duration, log *zap.SugaredLogger) {
	gr := NewGatewayRouter(gw, heartbeat, log)

	e.POST("/mcp", gr.HandleRPC)
	e.GET("/mcp/sse", gr.HandlePush)
	e.GET("/mcp/tools", gr.HandleCatalog)
}
