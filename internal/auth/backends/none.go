package backends

import (
	"context"

	"github.com/keyward/keyward/internal/auth"
)

// NoneVerifier accepts every username without checking the password: the
// open-access backend for deployments without authentication. Its presence
// in the backend list also disables the missing-username check in the
// orchestrator.
type NoneVerifier struct{}

// Validate always succeeds.
func (NoneVerifier) Validate(ctx context.Context, username, password string, hashed bool) (auth.Outcome, error) {
	return auth.OutcomeSuccess, nil
}

// CanHash is false; there is nothing to compare against.
func (NoneVerifier) CanHash() bool { return false }

// RecoveryPolicy is none.
func (NoneVerifier) RecoveryPolicy() auth.RecoveryPolicy { return auth.RecoveryNone }

// Logout is a no-op.
func (NoneVerifier) Logout(ctx context.Context, p *auth.Principal) error { return nil }

// ListUsers is empty; the backend knows no users.
func (NoneVerifier) ListUsers(ctx context.Context) ([]auth.UserEntry, error) { return nil, nil }
