package auth

// Decision tells the caller how to finish the request. Exactly one
// decision is produced per request; the orchestrator never terminates the
// process or writes to the transport itself.
type Decision int

const (
	// DecisionContinue: the request is authenticated; proceed with
	// Result.Principal attached.
	DecisionContinue Decision = iota

	// DecisionRedirect: send the client to Result.RedirectURL.
	DecisionRedirect

	// DecisionRenderForm: render the login form with the outcome, attempt
	// count and lock state from the Result.
	DecisionRenderForm

	// DecisionChallenge: emit a Basic authentication challenge with
	// Result.Realm and a 401 status.
	DecisionChallenge
)

// Result is the orchestrator's answer for one request. The caller applies
// the cookie instructions and the decision, then persists the (mutated)
// SessionState. When Authenticate returned a non-nil error instead, the
// request must be aborted and no session state persisted.
type Result struct {
	Decision Decision

	// Outcome is the attempt outcome; its numeric value is what redirect
	// query parameters and renderers receive.
	Outcome Outcome

	// Principal is set on DecisionContinue.
	Principal *Principal

	// Username is the resolved username, for form prefill and the
	// redirect query parameter. May be empty.
	Username string

	// RedirectURL is set on DecisionRedirect.
	RedirectURL string

	// Realm is set on DecisionChallenge.
	Realm string

	// Attempts and Locked describe the throttle state on
	// DecisionRenderForm. A locked form must show only the lockout
	// message and accept no submission fields.
	Attempts int
	Locked   bool

	// RecoveryAvailable tells the renderer whether to offer the
	// password-forgotten control.
	RecoveryAvailable bool

	// SetCookie, when non-nil, is a remember cookie to set on the
	// response. ClearCookie instructs the caller to drop the remember
	// cookie instead.
	SetCookie   *SetCookie
	ClearCookie bool
}
