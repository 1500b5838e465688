package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-showcase/internal/apperr"
)

// statusFor maps an error code to an HTTP status.
var statusFor = map[string]int{
	"NOT_FOUND":                  http.StatusNotFound,
	"ALREADY_LIKED":              http.StatusConflict,
	"VALIDATION_ERROR":           http.StatusBadRequest,
	"INVALID_CREDENTIALS":        http.StatusUnauthorized,
	"INVALID_CURRENT_CREDENTIAL": http.StatusForbidden,
	"UNAUTHORIZED":               http.StatusUnauthorized,
	"CONFLICT":                   http.StatusConflict,
	"STORAGE_UNAVAILABLE":        http.StatusServiceUnavailable,
}

// writeError renders err as {"error": code, "message": text}. Server-side
// failures are reported without detail.
func writeError(c echo.Context, err error) error {
	code := apperr.Code(err)
	status, ok := statusFor[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := "internal error"
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae) && ae.Message != "":
		msg = ae.Message
	case code == "STORAGE_UNAVAILABLE":
		msg = "storage unavailable"
	}
	body := echo.Map{"error": code, "message": msg}
	if status >= 500 {
		// Returned instead of written so the request logger records the cause.
		return echo.NewHTTPError(status, body).SetInternal(err)
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "VALIDATION_ERROR", "message": msg})
}
