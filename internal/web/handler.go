package web

import (
	"fmt"
	"html"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyward/keyward/internal/apperror"
	"github.com/keyward/keyward/internal/auth"
)

// Handler serves the demo routes around the auth guard.
type Handler struct {
	manager *auth.Manager
}

// NewHandler creates the route handler.
func NewHandler(manager *auth.Manager) *Handler {
	return &Handler{manager: manager}
}

// Home greets the authenticated user. Guarded.
func (h *Handler) Home(c echo.Context) error {
	p := Principal(c)
	return c.HTML(http.StatusOK, fmt.Sprintf(
		`<!doctype html><html><body><p>Welcome, %s.</p>`+
			`<p><a href="/whoami">Who am I</a> | <a href="/?atklogout=1">Log out</a></p></body></html>`,
		html.EscapeString(p.Name)))
}

// WhoAmI returns the authenticated principal as JSON, with a sample
// permission check so the cache sees use. Guarded.
func (h *Handler) WhoAmI(c echo.Context) error {
	p := Principal(c)
	perms := Permissions(c)

	canAdmin, err := perms.Allowed(c.Request().Context(), p, "accounts", "admin")
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("permission check: %w", err))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":           p,
		"accounts_admin": canAdmin,
	})
}

// Users returns the username dropdown datasource. Guarded; administrator
// only.
func (h *Handler) Users(c echo.Context) error {
	p := Principal(c)
	if p.AccessLevel < auth.AdministratorAccessLevel {
		return apperror.NewForbidden("administrator access required")
	}

	list, err := h.manager.UserList(c.Request().Context())
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}
	return c.JSON(http.StatusOK, list)
}

// LoggedOut is the standalone endpoint the hard logout redirects to. Not
// guarded, so the freshly cleared session is not immediately challenged.
func (h *Handler) LoggedOut(c echo.Context) error {
	return c.HTML(http.StatusOK,
		`<!doctype html><html><body><p>You have been logged out.</p>`+
			`<p><a href="/">Log in again</a></p></body></html>`)
}
