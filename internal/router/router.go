package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-showcase/internal/handler"
	"github.com/iliyamo/event-showcase/internal/middleware"
	"github.com/iliyamo/event-showcase/internal/session"
)

// Deps carries what the route groups need.
type Deps struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Public   *handler.PublicHandler
	Admin    *handler.AdminHandler
	Sessions *session.Manager

	// Optional; nil disables the concern.
	Cache     echo.MiddlewareFunc // public reads
	RateLimit echo.MiddlewareFunc // public writes and login
}

func orNoop(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

// RegisterRoutes registers every route on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)
	RegisterAuth(e, d.Auth, orNoop(d.RateLimit))
	RegisterPublic(e, d.Public, orNoop(d.Cache), orNoop(d.RateLimit))
	RegisterAdmin(e, d.Admin, d.Sessions)
}

// RegisterAuth registers login, logout and session status under /v1/auth.
// Only login is rate limited.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limit)
	g.POST("/logout", a.Logout)
	g.GET("/session", a.Session)
}

// RegisterPublic registers unauthenticated browse endpoints. Reads that do
// not count views are cacheable; visitor writes are rate limited.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/company", p.GetCompany, cache)
	g.GET("/events", p.ListEvents, cache)
	g.GET("/events/:id/chat", p.GetChat, cache)

	// Records a view on every call, so never served from cache.
	g.GET("/events/:id", p.GetEvent, limit)
	g.POST("/events/:id/likes", p.Like, limit)
	g.POST("/events/:id/chat", p.PostChat, limit)
}

// RegisterAdmin registers the admin surface under /v1/admin, guarded by
// the session middleware.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, sessions *session.Manager) {
	g := e.Group("/v1/admin", middleware.SessionAuth(sessions))
	g.GET("/catalog", h.GetCatalog)

	g.POST("/events", h.CreateEvent)
	g.PUT("/events/:id", h.UpdateEvent)
	g.DELETE("/events/:id", h.DeleteEvent)
	g.DELETE("/events", h.DeleteAllEvents)

	g.PATCH("/company", h.UpdateCompany)
	g.POST("/company/contacts", h.AddContact)
	g.DELETE("/company/contacts/:index", h.RemoveContact)

	g.PUT("/credentials", h.RotateCredentials)
	g.POST("/assets", h.UploadAsset)
}
