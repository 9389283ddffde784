package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

// RecoveryPolicy describes what a verifier backend can do about a lost
// password.
type RecoveryPolicy int

const (
	// RecoveryNone: the backend cannot help; the recovery flow stays off.
	RecoveryNone RecoveryPolicy = iota

	// RecoveryRetrievable: the stored password can be read back.
	RecoveryRetrievable

	// RecoveryRecreatable: a new password can be generated and stored.
	RecoveryRecreatable
)

// UserEntry is one row of a verifier's known-user listing, used as the
// datasource for a username dropdown. Rendering stays external.
type UserEntry struct {
	ID          string
	DisplayName string
}

// Verifier validates a username/password pair against one backend.
// Implementations live in internal/auth/backends and are resolved by name
// from a static registry at startup.
type Verifier interface {
	// Validate checks the pair. hashed indicates the password is already
	// an MD5 digest (cookie-sourced, or pre-hashed by the orchestrator
	// when CanHash is true). A non-nil error is a fatal backend fault
	// that aborts the whole request; a wrong password is the Mismatch
	// outcome with a nil error.
	Validate(ctx context.Context, username, password string, hashed bool) (Outcome, error)

	// CanHash reports whether the backend stores MD5 digests, letting the
	// orchestrator hash the submitted password before calling Validate
	// and mark remember cookies as MD5-encoded.
	CanHash() bool

	// RecoveryPolicy reports the backend's lost-password capability.
	RecoveryPolicy() RecoveryPolicy

	// Logout lets the backend observe an explicit logout of the given
	// principal (may be nil).
	Logout(ctx context.Context, p *Principal) error

	// ListUsers returns the backend's known users for dropdown display.
	ListUsers(ctx context.Context) ([]UserEntry, error)
}

// NamedVerifier pairs a verifier with its registry name, so the principal
// can record which backend accepted it.
type NamedVerifier struct {
	Name string
	Verifier
}

// MD5Hex returns the lowercase hex MD5 digest of s. MD5 is mandated by the
// remember-cookie wire format and the legacy reserved-account comparison;
// record-layer hashing uses bcrypt instead.
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
