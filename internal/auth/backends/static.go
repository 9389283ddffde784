package backends

import (
	"context"
	"crypto/subtle"
	"sort"
	"strings"

	"github.com/keyward/keyward/internal/auth"
)

// StaticVerifier validates against the username/password pairs from the
// configuration. Stored values may be plaintext or lowercase MD5 digests;
// digest comparison is only attempted when AUTH_MD5 is on. Useful for
// small fixed deployments and as a fallback backend ahead of the sql one.
type StaticVerifier struct {
	users    map[string]string
	allowMD5 bool
}

// NewStaticVerifier creates a static verifier over the configured pairs.
func NewStaticVerifier(users map[string]string, allowMD5 bool) *StaticVerifier {
	return &StaticVerifier{users: users, allowMD5: allowMD5}
}

// Validate compares the pair against the configured entry.
func (v *StaticVerifier) Validate(ctx context.Context, username, password string, hashed bool) (auth.Outcome, error) {
	stored, ok := v.users[username]
	if !ok {
		return auth.OutcomeMismatch, nil
	}

	if hashed {
		// Incoming password is an MD5 digest (cookie-sourced). Match it
		// against a digest-stored entry or against the digest of a
		// plaintext-stored one.
		if equalFold(password, stored) || equal(password, auth.MD5Hex(stored)) {
			return auth.OutcomeSuccess, nil
		}
		return auth.OutcomeMismatch, nil
	}

	if equal(password, stored) {
		return auth.OutcomeSuccess, nil
	}
	if v.allowMD5 && equal(auth.MD5Hex(password), strings.ToLower(stored)) {
		return auth.OutcomeSuccess, nil
	}
	return auth.OutcomeMismatch, nil
}

// CanHash is false: stored values may be plaintext, so the orchestrator
// must hand the password through unchanged.
func (v *StaticVerifier) CanHash() bool { return false }

// RecoveryPolicy is none: configuration entries cannot be rewritten at
// runtime.
func (v *StaticVerifier) RecoveryPolicy() auth.RecoveryPolicy { return auth.RecoveryNone }

// Logout is a no-op.
func (v *StaticVerifier) Logout(ctx context.Context, p *auth.Principal) error { return nil }

// ListUsers returns the configured usernames, sorted for stable dropdowns.
func (v *StaticVerifier) ListUsers(ctx context.Context) ([]auth.UserEntry, error) {
	entries := make([]auth.UserEntry, 0, len(v.users))
	for name := range v.users {
		entries = append(entries, auth.UserEntry{ID: name, DisplayName: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// equal is a constant-time string comparison.
func equal(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// equalFold compares two hex digests case-insensitively in constant time.
func equalFold(a, b string) bool {
	return equal(strings.ToLower(a), strings.ToLower(b))
}
