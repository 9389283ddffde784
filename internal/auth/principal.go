package auth

// Reserved account names. These are authenticated exclusively against the
// statically configured passwords and must never reach a pluggable
// verifier: a row created in a backing store could otherwise impersonate
// them. The comparison is case-sensitive.
const (
	ReservedAdministrator = "administrator"
	ReservedGuest         = "guest"
)

// AdministratorAccessLevel is the access level granted to the reserved
// administrator account. Level-scheme authorizers treat anything at or
// above it as all-powerful.
const AdministratorAccessLevel = 9999999

// Principal is the authenticated identity record attached to a session.
// It is created by the Authorization Provider on successful verification,
// owned by the orchestrator for the lifetime of the request, and mirrored
// into session state.
type Principal struct {
	// Name is the account name, as verified.
	Name string `json:"name"`

	// Level holds the account's access level id(s).
	Level Level `json:"level"`

	// AccessLevel is the numeric privilege ceiling.
	AccessLevel int `json:"access_level"`

	// AuthBackend names the verifier backend that accepted the
	// credentials. Empty for reserved accounts.
	AuthBackend string `json:"auth_backend,omitempty"`

	// Password retains the plaintext password for legacy encrypted-link
	// integrations. Only populated when AUTH_KEEP_PASSWORD is on, and
	// never serialized.
	Password string `json:"-"`
}

// HasLevel reports whether the principal holds any of the given level ids.
func (p *Principal) HasLevel(l Level) bool {
	if p == nil {
		return false
	}
	return p.Level.Intersects(l)
}

// administratorPrincipal builds the fixed principal for the reserved
// administrator account.
func administratorPrincipal() *Principal {
	return &Principal{
		Name:        ReservedAdministrator,
		Level:       SingleLevel(-1),
		AccessLevel: AdministratorAccessLevel,
	}
}

// guestPrincipal builds the fixed principal for the reserved guest account.
func guestPrincipal() *Principal {
	return &Principal{
		Name:        ReservedGuest,
		Level:       SingleLevel(-2),
		AccessLevel: 0,
	}
}
