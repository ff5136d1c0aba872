// Package shared
package shared

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
)

func SafeEnv(env string) (string, error) {
	// Lookup env variable, and panic if not present
	res, present := os.LookupEnv(env)
	if !present {
		return "", fmt.Errorf("missing environment variable %s", env)
	}
	return res, nil
}

func GetEnv(env, fallback string) string {
	if value, ok := os.LookupEnv(env); ok {
		return value
	}
	return fallback
}

// ExtractAPIKey pulls the tool credential out of either accepted carrier.
// The dedicated key header wins when both are present.
func ExtractAPIKey(c echo.Context) (string, error) {
	if key := c.Request().Header.Get("X-Api-Key"); key != "" {
		return key, nil
	}

	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuth
	}

	// Validate bearer format
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidFormat
	}

	return parts[1], nil
}

func GetString(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func DerefString(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}

// Truncate shortens s to at most n runes, appending an explicit marker when
// anything was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
