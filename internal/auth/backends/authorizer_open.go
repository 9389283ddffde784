package backends

import (
	"context"

	"github.com/keyward/keyward/internal/auth"
)

// OpenAuthorizer grants everything to everyone. Pairs with the none
// verifier for deployments that only want identification, not access
// control.
type OpenAuthorizer struct{}

// Principal returns a minimal principal carrying just the name.
func (OpenAuthorizer) Principal(ctx context.Context, username string) (*auth.Principal, error) {
	return &auth.Principal{Name: username, Level: auth.SingleLevel(0)}, nil
}

// Allowed always grants.
func (OpenAuthorizer) Allowed(ctx context.Context, p *auth.Principal, entity, privilege string) (bool, error) {
	return true, nil
}

// AttributeAllowed always grants.
func (OpenAuthorizer) AttributeAllowed(ctx context.Context, p *auth.Principal, attribute, mode string, record map[string]any) (bool, error) {
	return true, nil
}
