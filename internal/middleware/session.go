package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-showcase/internal/guard"
	"github.com/iliyamo/event-showcase/internal/session"
)

// Context keys set by SessionAuth.
const (
	ContextSession = "session"
	ContextUser    = "user_id"
)

// BearerToken returns the token of an "Authorization: Bearer" header, or
// "" when the header is missing or uses another scheme.
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// SessionAuth resumes the caller's tab from its bearer token and lets the
// request through only when the access guard accepts it. The validated
// session is stored in the context for handlers.
func SessionAuth(mgr *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			tab := mgr.Resume(BearerToken(c))
			if err := guard.RequireSession(ctx, tab); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "login required"})
			}
			s, ok := tab.Session(ctx)
			if !ok {
				// expired between the two checks
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "UNAUTHORIZED", "message": "login required"})
			}
			c.Set(ContextSession, s)
			c.Set(ContextUser, s.User)
			return next(c)
		}
	}
}
