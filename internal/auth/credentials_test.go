package auth

import (
	"encoding/base64"
	"testing"

	"github.com/keyward/keyward/internal/config"
)

func managerWithCfg(cfg config.AuthConfig) *Manager {
	return NewManager(cfg, "Keyward", nil, nil, nil)
}

func md5Cookie(username, password string) string {
	return EncodeRememberToken(RememberToken{
		Encoding: EncodingMD5,
		Username: username,
		Secret:   MD5Hex(password),
	})
}

func TestResolveCredentialsPrecedence(t *testing.T) {
	legacyHeader := "Basic " + base64.StdEncoding.EncodeToString([]byte("legacy:legacypw"))

	tests := []struct {
		name       string
		cfg        config.AuthConfig
		req        Request
		wantUser   string
		wantPw     string
		wantHashed bool
		wantSource CredentialSource
	}{
		{
			name:       "form wins over everything",
			cfg:        config.AuthConfig{LoginForm: true, RememberCookie: true},
			req:        Request{FormUser: "frank", FormPassword: "secret", BasicUser: "basic", BasicPassword: "basicpw", AuthorizationHeader: legacyHeader, RememberCookie: md5Cookie("cookieuser", "cookiepw")},
			wantUser:   "frank",
			wantPw:     "secret",
			wantSource: SourceForm,
		},
		{
			name:       "basic auth when form login disabled",
			cfg:        config.AuthConfig{LoginForm: false},
			req:        Request{FormUser: "frank", FormPassword: "secret", BasicUser: "basic", BasicPassword: "basicpw"},
			wantUser:   "basic",
			wantPw:     "basicpw",
			wantSource: SourceBasicAuth,
		},
		{
			name:       "legacy header when form empty",
			cfg:        config.AuthConfig{LoginForm: true},
			req:        Request{AuthorizationHeader: legacyHeader},
			wantUser:   "legacy",
			wantPw:     "legacypw",
			wantSource: SourceLegacyHeader,
		},
		{
			name:       "basic fallback when header malformed",
			cfg:        config.AuthConfig{LoginForm: true},
			req:        Request{AuthorizationHeader: "Basic !!!", BasicUser: "basic", BasicPassword: "basicpw"},
			wantUser:   "basic",
			wantPw:     "basicpw",
			wantSource: SourceBasicAuth,
		},
		{
			name:       "cookie only when all else absent",
			cfg:        config.AuthConfig{LoginForm: true, RememberCookie: true},
			req:        Request{RememberCookie: md5Cookie("cookieuser", "cookiepw")},
			wantUser:   "cookieuser",
			wantPw:     MD5Hex("cookiepw"),
			wantHashed: true,
			wantSource: SourceCookie,
		},
		{
			name:       "cookie ignored when feature off",
			cfg:        config.AuthConfig{LoginForm: true, RememberCookie: false},
			req:        Request{RememberCookie: md5Cookie("cookieuser", "cookiepw")},
			wantSource: SourceNone,
		},
		{
			name:       "administrator cookie never honored",
			cfg:        config.AuthConfig{LoginForm: true, RememberCookie: true},
			req:        Request{RememberCookie: md5Cookie(ReservedAdministrator, "adminpw")},
			wantSource: SourceNone,
		},
		{
			name: "plain cookie is not hashed",
			cfg:  config.AuthConfig{LoginForm: true, RememberCookie: true},
			req: Request{RememberCookie: EncodeRememberToken(RememberToken{
				Encoding: EncodingPlain, Username: "cookieuser", Secret: "plainpw",
			})},
			wantUser:   "cookieuser",
			wantPw:     "plainpw",
			wantSource: SourceCookie,
		},
		{
			name:       "nothing at all",
			cfg:        config.AuthConfig{LoginForm: true},
			req:        Request{},
			wantSource: SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := managerWithCfg(tt.cfg)
			creds := m.resolveCredentials(tt.req)
			if creds.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", creds.Username, tt.wantUser)
			}
			if creds.Password != tt.wantPw {
				t.Errorf("Password = %q, want %q", creds.Password, tt.wantPw)
			}
			if creds.Hashed != tt.wantHashed {
				t.Errorf("Hashed = %v, want %v", creds.Hashed, tt.wantHashed)
			}
			if creds.Source != tt.wantSource {
				t.Errorf("Source = %v, want %v", creds.Source, tt.wantSource)
			}
		})
	}
}

func TestParseLegacyAuthorization(t *testing.T) {
	user, pw, ok := parseLegacyAuthorization("Basic " + base64.StdEncoding.EncodeToString([]byte("frank:top:secret")))
	if !ok || user != "frank" || pw != "top:secret" {
		t.Errorf("parsed (%q, %q, %v), want (frank, top:secret, true)", user, pw, ok)
	}

	for _, raw := range []string{
		"",
		"Bearer abc",
		"Basic not-base64!!!",
		"Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")),
		"Basic " + base64.StdEncoding.EncodeToString([]byte(":pwonly")),
	} {
		if _, _, ok := parseLegacyAuthorization(raw); ok {
			t.Errorf("parseLegacyAuthorization(%q) ok, want rejection", raw)
		}
	}
}
