package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports whether the catalog backend answers.
type HealthHandler struct {
	Probe func(ctx context.Context) error // usually a store read
}

// Health returns "ok", or 503 when the probe fails within two seconds.
func (h *HealthHandler) Health(c echo.Context) error {
	if h.Probe != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.Probe(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "storage unavailable")
		}
	}
	return c.String(http.StatusOK, "ok")
}
