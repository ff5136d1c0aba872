package routers

import (
	"encoding/json"
	"net/http"

	"compass-api/internal/handlers/coach"
	"compass-api/internal/middleware"
	"compass-api/internal/setup"
	"compass-api/internal/shared"

	"github.com/labstack/echo/v4"
)

type CoachRouter struct {
	ch *coach.Handler
}

func NewCoachRouter(ch *coach.Handler) *CoachRouter {
	return &CoachRouter{ch: ch}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (cr *CoachRouter) Chat(cc echo.Context) error {
	c := cc.(*setup.Context)

	body, err := readRequestBody(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": shared.ErrInternalServerError.Err.Error()})
	}
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	setupSSEHeaders(c)
	_, err = cr.ch.Chat(coach.ChatInput{
		Ctx:          c.Request().Context(),
		AccountID:    c.Account.AccountID,
		Message:      req.Message,
		StreamWriter: createStreamCallback(c),
	})
	if err != nil {
		// Headers are already gone; all we can do is log and end the stream.
		c.Log.Errorw("chat generation failed", "error", err)
	}
	return nil
}

func (cr *CoachRouter) WeeklyReport(cc echo.Context) error {
	c := cc.(*setup.Context)

	setupSSEHeaders(c)
	_, err := cr.ch.WeeklyReport(coach.ReportInput{
		Ctx:          c.Request().Context(),
		AccountID:    c.Account.AccountID,
		StreamWriter: createStreamCallback(c),
	})
	if err != nil {
		c.Log.Errorw("report generation failed", "error", err)
	}
	return nil
}

// RegisterCoachRoutes registers the chat and report routes behind session
// auth.
func RegisterCoachRoutes(e *echo.Group, ch *coach.Handler, sessionSecret []byte) {
	cr := NewCoachRouter(ch)

	v1 := e.Group("/v1")
	v1.Use(middleware.ExtractSession(sessionSecret))
	v1.Use(middleware.RequireSession)

	v1.POST("/chat", cr.Chat)
	v1.POST("/reports/weekly", cr.WeeklyReport)
}
