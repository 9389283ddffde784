package web

import (
	"errors"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyward/keyward/internal/apperror"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/middleware"
)

// NewServer assembles the Echo instance: global middleware, the error
// handler, and the routes. Everything except /logged-out sits behind the
// auth guard; the credential-submitting POST additionally gets a per-IP
// rate limit.
func NewServer(cfg *config.Config, guard *Guard, h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recovery())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.SecurityHeaders())

	e.GET("/logged-out", h.LoggedOut)

	authed := guard.Middleware()
	e.GET("/", h.Home, authed)
	e.POST("/", h.Home, middleware.LoginRateLimit(10, time.Minute), authed)
	e.GET("/whoami", h.WhoAmI, authed)
	e.GET("/users", h.Users, authed)

	return e
}

// errorHandler maps application errors to JSON responses. AppError carries
// its own status and client-safe message; anything else becomes a generic
// 500 with the cause kept to the logs.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("type", appErr.Type),
				slog.Any("error", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
		_ = c.JSON(appErr.Code, appErr)
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, map[string]any{"type": "http_error", "message": httpErr.Message})
		return
	}

	slog.Error("unhandled error",
		slog.Any("error", err),
		slog.String("path", c.Request().URL.Path),
	)
	_ = c.JSON(apperror.SafeCode(err), map[string]string{
		"type":    "internal_error",
		"message": apperror.SafeMessage(err),
	})
}
