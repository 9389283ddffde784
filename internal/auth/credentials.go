package auth

import (
	"encoding/base64"
	"strings"
)

// ActionPasswordForgotten is the login-action value that triggers the
// password recovery flow instead of a credential check.
const ActionPasswordForgotten = "password_forgotten"

// Request carries everything one HTTP request contributes to the
// authentication decision. The transport layer fills it in; the
// orchestrator never reads headers or forms itself.
type Request struct {
	// FormUser and FormPassword are the submitted login form fields.
	FormUser     string
	FormPassword string

	// LoginAction is the value of the submitted "login" field: the login
	// button label, or ActionPasswordForgotten.
	LoginAction string

	// LogoutLevel is the parsed logout signal: 0 none, 1 logout, >1 hard
	// logout (redirect to the standalone logout endpoint).
	LogoutLevel int

	// BasicUser and BasicPassword come from a parsed Basic-Auth header.
	BasicUser     string
	BasicPassword string

	// AuthorizationHeader is the raw Authorization header, consulted for
	// the legacy combined "Basic <base64>" form when nothing else
	// supplied credentials.
	AuthorizationHeader string

	// RememberCookie is the raw remember-cookie value, or empty.
	RememberCookie string

	// SelfURL is the request's own URL without query, used to strip a
	// stale logout signal after re-authentication.
	SelfURL string
}

// CredentialSource records where the effective credentials came from.
type CredentialSource int

const (
	SourceNone CredentialSource = iota
	SourceForm
	SourceBasicAuth
	SourceLegacyHeader
	SourceCookie
)

// Credentials is the per-request username/password pair after source
// precedence was applied. Hashed is true only when the password came from
// an MD5-tagged remember cookie: the source that supplied the password
// also supplies its hash flag, so a hashed cookie secret is never compared
// against a freshly hashed form password.
type Credentials struct {
	Username string
	Password string
	Hashed   bool
	Source   CredentialSource
}

// resolveCredentials applies the source precedence: form fields (or
// server-parsed Basic auth, depending on the login-form toggle), then the
// legacy combined Authorization header, then Basic auth as a fallback, and
// only when all of those are absent the remember cookie. The cookie is
// never honored for the administrator account.
func (m *Manager) resolveCredentials(req Request) Credentials {
	var creds Credentials

	if m.cfg.LoginForm {
		creds = Credentials{Username: req.FormUser, Password: req.FormPassword, Source: SourceForm}
	} else {
		creds = Credentials{Username: req.BasicUser, Password: req.BasicPassword, Source: SourceBasicAuth}
	}

	if creds.Username == "" && creds.Password == "" {
		if user, pw, ok := parseLegacyAuthorization(req.AuthorizationHeader); ok {
			creds = Credentials{Username: user, Password: pw, Source: SourceLegacyHeader}
		} else if req.BasicUser != "" {
			creds = Credentials{Username: req.BasicUser, Password: req.BasicPassword, Source: SourceBasicAuth}
		}
	}

	if m.cfg.RememberCookie && creds.Username == "" {
		token := DecodeRememberToken(req.RememberCookie)
		if token.Username != "" && token.Username != ReservedAdministrator {
			creds = Credentials{
				Username: token.Username,
				Password: token.Secret,
				Hashed:   token.Encoding == EncodingMD5,
				Source:   SourceCookie,
			}
		}
	}

	if creds.Username == "" && creds.Password == "" {
		creds.Source = SourceNone
	}
	return creds
}

// parseLegacyAuthorization decodes the legacy combined "Basic <base64>"
// Authorization header into a username/password pair. Malformed input is
// "no credentials", never an error.
func parseLegacyAuthorization(header string) (user, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	user, password, found := strings.Cut(string(decoded), ":")
	if !found || user == "" {
		return "", "", false
	}
	return user, password, true
}
