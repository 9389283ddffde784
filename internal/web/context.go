package web

import (
	"github.com/labstack/echo/v4"

	"github.com/keyward/keyward/internal/auth"
)

// Echo context keys set by the guard on authenticated requests.
const (
	ctxPrincipal   = "keyward.principal"
	ctxPermissions = "keyward.permissions"
	ctxSessionID   = "keyward.session_id"
)

// Principal returns the authenticated principal for the request, or nil
// outside a guarded route.
func Principal(c echo.Context) *auth.Principal {
	p, _ := c.Get(ctxPrincipal).(*auth.Principal)
	return p
}

// Permissions returns the request-scoped permission cache, or nil outside
// a guarded route.
func Permissions(c echo.Context) *auth.PermissionCache {
	p, _ := c.Get(ctxPermissions).(*auth.PermissionCache)
	return p
}

// SessionID returns the session identifier the guard attached to the
// request.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(ctxSessionID).(string)
	return sid
}
