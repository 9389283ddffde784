package web

import (
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyward/keyward/internal/auth"
)

// FormData is everything a login form renderer receives. Locked forms must
// show only the lockout message and no input fields.
type FormData struct {
	Username          string
	Outcome           auth.Outcome
	Attempts          int
	Locked            bool
	RecoveryAvailable bool
}

// FormRenderer renders the inline login form. Applications bring their own
// implementation; DefaultRenderer is a bare fallback.
type FormRenderer interface {
	RenderLoginForm(c echo.Context, data FormData) error
}

// loginFormTmpl is the unstyled fallback form. Real deployments replace
// the renderer entirely.
var loginFormTmpl = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><title>Log in</title></head><body>
{{if .Locked}}
<p>Too many login attempts. The form is locked.</p>
{{else}}
{{if .Message}}<p>{{.Message}}</p>{{end}}
<form method="post" action="">
<label>Username <input type="text" name="auth_user" value="{{.Username}}"></label>
<label>Password <input type="password" name="auth_pw"></label>
<button type="submit" name="login" value="login">Log in</button>
{{if .RecoveryAvailable}}<button type="submit" name="login" value="password_forgotten">Forgot password</button>{{end}}
</form>
{{end}}
</body></html>`))

// DefaultRenderer renders a minimal HTML login form.
type DefaultRenderer struct{}

// RenderLoginForm writes the fallback form with the outcome message.
func (DefaultRenderer) RenderLoginForm(c echo.Context, data FormData) error {
	view := struct {
		FormData
		Message string
	}{FormData: data, Message: outcomeMessage(data.Outcome)}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return loginFormTmpl.Execute(c.Response().Writer, view)
}

// outcomeMessage maps an outcome to the fallback form's feedback line.
func outcomeMessage(o auth.Outcome) string {
	switch o {
	case auth.OutcomeMismatch:
		return "Unknown username or wrong password."
	case auth.OutcomeMissingUsername:
		return "Please supply a username."
	case auth.OutcomePasswordSent:
		return "If the account exists, a new password was mailed to it."
	case auth.OutcomeLocked:
		return "Too many login attempts."
	default:
		return ""
	}
}
