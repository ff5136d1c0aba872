package routers

import (
	"encoding/json"
	"net/http"

	"compass-api/internal/credentials"
	"compass-api/internal/middleware"
	"compass-api/internal/setup"
	"compass-api/internal/shared"

	"github.com/labstack/echo/v4"
)

// KeysRouter is the credential-management surface. It is authenticated by
// the owning account's own session, never by a tool credential, and every
// operation is scoped to the caller's credentials.
type KeysRouter struct {
	store *credentials.Store
}

func NewKeysRouter(store *credentials.Store) *KeysRouter {
	return &KeysRouter{store: store}
}

type issueKeyRequest struct {
	Label string `json:"label"`
}

func (kr *KeysRouter) IssueKey(cc echo.Context) error {
	c := cc.(*setup.Context)

	body, err := readRequestBody(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": shared.ErrInternalServerError.Err.Error()})
	}
	var req issueKeyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON format"})
	}
	if req.Label == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "label is required"})
	}

	secret, cred, err := kr.store.Issue(c.Request().Context(), c.Account.AccountID, req.Label)
	if err != nil {
		c.Log.Errorw("failed issuing credential", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": shared.ErrInternalServerError.Err.Error()})
	}

	// The plaintext appears here once and is never retrievable again.
	return c.JSON(http.StatusOK, map[string]any{
		"id":         cred.ID,
		"key":        secret,
		"label":      cred.Label,
		"created_at": shared.FormatTime(cred.CreatedAt),
	})
}

func (kr *KeysRouter) ListKeys(cc echo.Context) error {
	c := cc.(*setup.Context)

	creds, err := kr.store.List(c.Request().Context(), c.Account.AccountID)
	if err != nil {
		c.Log.Errorw("failed listing credentials", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": shared.ErrInternalServerError.Err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"keys": creds})
}

type renameKeyRequest struct {
	Label string `json:"label"`
}

func (kr *KeysRouter) RenameKey(cc echo.Context) error {
	c := cc.(*setup.Context)

	body, err := readRequestBody(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": shared.ErrInternalServerError.Err.Error()})
	}
	var req renameKeyRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Label == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "label is required"})
	}

	if !kr.store.Rename(c.Request().Context(), c.Account.AccountID, c.Param("id"), req.Label) {
		return c.JSON(shared.ErrKeyNotFound.StatusCode, map[string]string{"error": shared.ErrKeyNotFound.Err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"id": c.Param("id"), "label": req.Label})
}

func (kr *KeysRouter) RevokeKey(cc echo.Context) error {
	c := cc.(*setup.Context)

	if !kr.store.Revoke(c.Request().Context(), c.Account.AccountID, c.Param("id")) {
		return c.JSON(shared.ErrKeyNotFound.StatusCode, map[string]string{"error": shared.ErrKeyNotFound.Err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"id": c.Param("id"), "active": false})
}

func (kr *KeysRouter) DeleteKey(cc echo.Context) error {
	c := cc.(*setup.Context)

	if !kr.store.Delete(c.Request().Context(), c.Account.AccountID, c.Param("id")) {
		return c.JSON(shared.ErrKeyNotFound.StatusCode, map[string]string{"error": shared.ErrKeyNotFound.Err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterKeyRoutes registers the credential-management routes behind
// session auth.
func RegisterKeyRoutes(e *echo.Group, store *credentials.Store, sessionSecret []byte) {
	kr := NewKeysRouter(store)

	keys := e.Group("/v1/keys")
	keys.Use(middleware.ExtractSession(sessionSecret))
	keys.Use(middleware.RequireSession)

	keys.POST("", kr.IssueKey)
	keys.GET("", kr.ListKeys)
	keys.PATCH("/:id", kr.RenameKey)
	keys.POST("/:id/revoke", kr.RevokeKey)
	keys.DELETE("/:id", kr.DeleteKey)
}
