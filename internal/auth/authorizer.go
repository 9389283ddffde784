package auth

import "context"

// Authorizer maps an authenticated identity to a principal record and
// decides entity-, privilege- and attribute-level permissions. Called only
// after a verifier reported success.
type Authorizer interface {
	// Principal builds the principal record for a verified username.
	Principal(ctx context.Context, username string) (*Principal, error)

	// Allowed decides whether the principal holds a privilege on an
	// entity.
	Allowed(ctx context.Context, p *Principal, entity, privilege string) (bool, error)

	// AttributeAllowed decides whether the principal may use an entity
	// attribute in the given mode ("view", "edit", ...). The record, when
	// non-nil, carries the row under consideration.
	AttributeAllowed(ctx context.Context, p *Principal, attribute, mode string, record map[string]any) (bool, error)
}

// permKey identifies one memoized Allowed decision.
type permKey struct {
	entity    string
	privilege string
}

// PermissionCache memoizes Allowed results for the lifetime of one request.
// Permissions are not expected to change within a request, so entries are
// never invalidated. The cache is owned by the caller and must not be
// shared across requests: a long-lived worker serving many principals
// would otherwise leak one principal's decisions into another's request.
type PermissionCache struct {
	authz   Authorizer
	allowed map[permKey]bool
}

// NewPermissionCache wraps an authorizer with a request-scoped cache.
func NewPermissionCache(authz Authorizer) *PermissionCache {
	return &PermissionCache{
		authz:   authz,
		allowed: make(map[permKey]bool),
	}
}

// Allowed returns the memoized decision for (entity, privilege), asking
// the authorizer at most once per key. Errors are not cached.
func (c *PermissionCache) Allowed(ctx context.Context, p *Principal, entity, privilege string) (bool, error) {
	key := permKey{entity: entity, privilege: privilege}
	if decision, ok := c.allowed[key]; ok {
		return decision, nil
	}
	decision, err := c.authz.Allowed(ctx, p, entity, privilege)
	if err != nil {
		return false, err
	}
	c.allowed[key] = decision
	return decision, nil
}

// AttributeAllowed passes through to the authorizer. Attribute decisions
// depend on the record under consideration and are not cached.
func (c *PermissionCache) AttributeAllowed(ctx context.Context, p *Principal, attribute, mode string, record map[string]any) (bool, error) {
	return c.authz.AttributeAllowed(ctx, p, attribute, mode, record)
}
