package auth

import (
	"encoding/base64"
	"strings"
)

// Remember-cookie encoding tags. MD5 means the secret is an MD5 digest of
// the password; PLAIN means the secret is the password itself (only used
// when no configured verifier can hash).
const (
	EncodingMD5   = "MD5"
	EncodingPlain = "PLAIN"
)

// cookieNamePrefix is versioned so a format change can coexist with stale
// cookies from older deployments.
const cookieNamePrefix = "keyward_auth1_"

// CookieName derives the remember-cookie name from the application title.
// More than one Keyward app may run under the same domain, each with its
// own cookie.
func CookieName(appTitle string) string {
	return cookieNamePrefix + strings.ReplaceAll(appTitle, " ", "_")
}

// RememberToken is the decoded content of a remember cookie.
type RememberToken struct {
	Encoding string
	Username string
	Secret   string
}

// EncodeRememberToken packs a token into the cookie wire format:
// base64 of "<ENC>.<username>.<secret>".
func EncodeRememberToken(t RememberToken) string {
	return base64.StdEncoding.EncodeToString([]byte(t.Encoding + "." + t.Username + "." + t.Secret))
}

// DecodeRememberToken unpacks a cookie value. Absent or garbled values
// (bad base64, fewer than two delimiters) decode to the zero token rather
// than raising: a forged or truncated cookie is "no credentials", never an
// error.
func DecodeRememberToken(raw string) RememberToken {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return RememberToken{}
	}
	parts := strings.SplitN(string(decoded), ".", 3)
	if len(parts) != 3 {
		return RememberToken{}
	}
	return RememberToken{
		Encoding: parts[0],
		Username: parts[1],
		Secret:   parts[2],
	}
}

// SetCookie instructs the transport layer to set (or clear) the remember
// cookie on the response. MaxAge is in seconds; negative clears.
type SetCookie struct {
	Name   string
	Value  string
	MaxAge int
}
