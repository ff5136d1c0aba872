package middleware

import (
	"errors"

	"compass-api/internal/credentials"
	"compass-api/internal/metrics"
	"compass-api/internal/setup"
	"compass-api/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ExtractAccount resolves a tool credential into an account, silently. Routes
// that need the identity stack RequireAccount on top.
func ExtractAccount(store *credentials.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(cc echo.Context) error {
			c := cc.(*setup.Context)
			c.Account = nil

			apiKey, err := shared.ExtractAPIKey(c)
			if err != nil {
				return next(c)
			}
			accountID, err := store.Authenticate(c.Request().Context(), apiKey)
			if err != nil {
				return next(c)
			}
			c.Account = &shared.AccountMetadata{AccountID: accountID}
			c.Log = c.Log.With("account_id", accountID)
			return next(c)
		}
	}
}

func RequireAccount(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*setup.Context)
		if c.Account == nil {
			return c.String(401, "unauthorized")
		}
		return next(c)
	}
}

// ExtractSession authenticates the product UI's own session token (HS256
// JWT). This surface is deliberately separate from tool credentials: a tool
// key can never manage keys, and a session never reaches the gateway.
func ExtractSession(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(cc echo.Context) error {
			c := cc.(*setup.Context)
			c.Account = nil

			raw, err := shared.ExtractAPIKey(c)
			if err != nil {
				return next(c)
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				metrics.AuthFailures.WithLabelValues("session").Inc()
				return next(c)
			}

			c.Account = &shared.AccountMetadata{AccountID: claims.Subject}
			c.Log = c.Log.With("account_id", claims.Subject)
			return next(c)
		}
	}
}

func RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return RequireAccount(next)
}
