// Package auth implements the authentication and authorization core of
// Keyward: credential resolution, the pluggable verifier chain, the
// remember-cookie codec, session state, login throttling, security event
// notification, password recovery, and the orchestrating state machine
// that ties them together.
//
// The package is transport-agnostic. Everything a request contributes is
// carried in by Request and SessionState, and everything the caller must
// apply (cookies, redirects, the decision itself) comes back in Result.
// The HTTP glue lives in internal/web.
package auth

// Outcome is the enumerated result of one authentication attempt. The
// numeric values are a stable interface with callers and renderers (they
// appear in redirect query parameters) and must not be renumbered.
type Outcome int

const (
	// OutcomeUnverified is the initial value before any check ran.
	OutcomeUnverified Outcome = 0

	// OutcomeSuccess means the credentials were verified.
	OutcomeSuccess Outcome = 1

	// OutcomeLocked means the login form display ceiling was exceeded.
	OutcomeLocked Outcome = 2

	// OutcomeMismatch means the username/password pair was rejected.
	OutcomeMismatch Outcome = 3

	// OutcomePasswordSent means the recovery flow ran for this request.
	OutcomePasswordSent Outcome = 4

	// OutcomeMissingUsername means a login was submitted without a username.
	OutcomeMissingUsername Outcome = 5

	// OutcomeError means a verifier signalled a fatal backend fault.
	OutcomeError Outcome = -1
)

// String returns a short identifier for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnverified:
		return "unverified"
	case OutcomeSuccess:
		return "success"
	case OutcomeLocked:
		return "locked"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomePasswordSent:
		return "password_sent"
	case OutcomeMissingUsername:
		return "missing_username"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}
