package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-showcase/internal/credential"
	"github.com/iliyamo/event-showcase/internal/middleware"
	"github.com/iliyamo/event-showcase/internal/session"
)

// AuthHandler bundles dependencies for login and logout.
type AuthHandler struct {
	Sessions *session.Manager
	Creds    *credential.Store
}

func NewAuthHandler(s *session.Manager, c *credential.Store) *AuthHandler {
	return &AuthHandler{Sessions: s, Creds: c}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResp struct {
	Authenticated bool      `json:"authenticated"`
	User          string    `json:"user,omitempty"`
	Token         string    `json:"token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	UsernameHint  string    `json:"username_hint,omitempty"`
}

// Login verifies the admin credential and returns a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}
	s, err := h.Sessions.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{
		Authenticated: true,
		User:          s.User,
		Token:         s.Token,
		ExpiresAt:     s.ExpiresAt,
	})
}

// Logout revokes the bearer token. It succeeds for unknown tokens too.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Sessions.Logout(c.Request().Context(), middleware.BearerToken(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Session reports whether the bearer token is live. Logged out callers get
// the admin username to prefill the login form.
func (h *AuthHandler) Session(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.Sessions.Validate(ctx, middleware.BearerToken(c))
	if err == nil {
		return c.JSON(http.StatusOK, sessionResp{Authenticated: true, User: s.User, ExpiresAt: s.ExpiresAt})
	}
	hint, err := h.Creds.Username(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionResp{UsernameHint: hint})
}
