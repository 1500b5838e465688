package middleware

// identity.go holds helpers shared across middleware files.

import "github.com/labstack/echo/v4"

// userID returns the logged in admin set by SessionAuth, or "guest" for
// public callers.
func userID(c echo.Context) string {
	if v, ok := c.Get(ContextUser).(string); ok && v != "" {
		return v
	}
	return "guest"
}
