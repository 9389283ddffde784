package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyward/keyward/internal/apperror"
	"github.com/keyward/keyward/internal/auth"
)

// sidCookieName carries the opaque session identifier. Distinct from the
// remember cookie, which survives browser restarts.
const sidCookieName = "keyward_sid"

// Guard is the authentication middleware. It loads the session, hands the
// request's credential material to the auth manager, persists the mutated
// state and translates the manager's decision into an HTTP response.
type Guard struct {
	manager  *auth.Manager
	sessions auth.SessionStore
	renderer FormRenderer
}

// NewGuard builds a guard. A nil renderer falls back to DefaultRenderer.
func NewGuard(manager *auth.Manager, sessions auth.SessionStore, renderer FormRenderer) *Guard {
	if renderer == nil {
		renderer = DefaultRenderer{}
	}
	return &Guard{manager: manager, sessions: sessions, renderer: renderer}
}

// Middleware returns the Echo middleware protecting a route group. Only
// DecisionContinue lets the wrapped handler run.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			sid, isNew := g.sessionID(c)
			state, err := g.sessions.Load(ctx, sid)
			if err != nil {
				return apperror.NewInternal(fmt.Errorf("loading session: %w", err))
			}

			result, err := g.manager.Authenticate(ctx, buildRequest(c, g.manager.CookieName()), state)
			if err != nil {
				// Fatal fault: abort without persisting the half-mutated
				// state.
				return apperror.NewInternal(fmt.Errorf("authenticating request: %w", err))
			}

			if err := g.sessions.Save(ctx, sid, state); err != nil {
				return apperror.NewInternal(fmt.Errorf("saving session: %w", err))
			}
			if isNew {
				c.SetCookie(&http.Cookie{
					Name:     sidCookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			g.applyRememberCookie(c, result)

			switch result.Decision {
			case auth.DecisionContinue:
				c.Response().Header().Set("X-Auth-User", result.Principal.Name)
				c.Set(ctxPrincipal, result.Principal)
				c.Set(ctxPermissions, g.manager.Permissions())
				c.Set(ctxSessionID, sid)
				return next(c)

			case auth.DecisionRedirect:
				return c.Redirect(http.StatusSeeOther, result.RedirectURL)

			case auth.DecisionRenderForm:
				return g.renderer.RenderLoginForm(c, FormData{
					Username:          result.Username,
					Outcome:           result.Outcome,
					Attempts:          result.Attempts,
					Locked:            result.Locked,
					RecoveryAvailable: result.RecoveryAvailable,
				})

			default: // DecisionChallenge
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+result.Realm+`"`)
				return c.NoContent(http.StatusUnauthorized)
			}
		}
	}
}

// sessionID returns the request's session id, minting a fresh one when the
// cookie is missing or malformed.
func (g *Guard) sessionID(c echo.Context) (string, bool) {
	if ck, err := c.Cookie(sidCookieName); err == nil && len(ck.Value) == 64 {
		return ck.Value, false
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("session id entropy: " + err.Error())
	}
	return hex.EncodeToString(buf), true
}

// applyRememberCookie sets or clears the remember cookie per the result.
func (g *Guard) applyRememberCookie(c echo.Context, result auth.Result) {
	switch {
	case result.SetCookie != nil:
		c.SetCookie(&http.Cookie{
			Name:     result.SetCookie.Name,
			Value:    result.SetCookie.Value,
			MaxAge:   result.SetCookie.MaxAge,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	case result.ClearCookie:
		c.SetCookie(&http.Cookie{
			Name:     g.manager.CookieName(),
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
		})
	}
}

// buildRequest collects the credential material the manager inspects. Form
// values cover both POST bodies and query parameters, so the logout signal
// works as a plain link.
func buildRequest(c echo.Context, cookieName string) auth.Request {
	r := c.Request()
	basicUser, basicPassword, _ := r.BasicAuth()

	logoutLevel, _ := strconv.Atoi(c.FormValue("atklogout"))

	remember := ""
	if ck, err := c.Cookie(cookieName); err == nil {
		remember = ck.Value
	}

	return auth.Request{
		FormUser:            c.FormValue("auth_user"),
		FormPassword:        c.FormValue("auth_pw"),
		LoginAction:         c.FormValue("login"),
		LogoutLevel:         logoutLevel,
		BasicUser:           basicUser,
		BasicPassword:       basicPassword,
		AuthorizationHeader: r.Header.Get("Authorization"),
		RememberCookie:      remember,
		SelfURL:             r.URL.Path,
	}
}
