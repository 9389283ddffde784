package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/keyward/keyward/internal/config"
)

// Manager is the authentication orchestrator. It owns the verifier chain,
// the authorization backend, the event notifier, the throttle and the
// recovery flow, and drives them through the per-request state machine in
// Authenticate.
type Manager struct {
	cfg       config.AuthConfig
	appTitle  string
	verifiers []NamedVerifier
	authz     Authorizer
	notifier  *Notifier
	throttle  Throttle
	recovery  *Recovery
	mailerOn  bool
}

// NewManager wires an orchestrator. recovery may be nil when the password
// mailer is disabled; the recovery flow only becomes available when it is
// configured on AND at least one verifier reports a recoverable policy.
func NewManager(cfg config.AuthConfig, appTitle string, verifiers []NamedVerifier, authz Authorizer, recovery *Recovery) *Manager {
	m := &Manager{
		cfg:       cfg,
		appTitle:  appTitle,
		verifiers: verifiers,
		authz:     authz,
		notifier:  &Notifier{},
		throttle:  Throttle{Max: cfg.MaxLoginAttempts},
		recovery:  recovery,
	}
	if cfg.PasswordMailer && recovery != nil {
		for _, v := range verifiers {
			if p := v.RecoveryPolicy(); p == RecoveryRetrievable || p == RecoveryRecreatable {
				m.mailerOn = true
				break
			}
		}
	}
	return m
}

// AddListener registers a security event listener. Insertion order is
// notification order.
func (m *Manager) AddListener(l Listener) {
	m.notifier.AddListener(l)
}

// RecoveryAvailable reports whether the password recovery flow is active
// system-wide.
func (m *Manager) RecoveryAvailable() bool {
	return m.mailerOn
}

// CookieName returns the remember-cookie name for this application.
func (m *Manager) CookieName() string {
	return CookieName(m.appTitle)
}

// Permissions returns a fresh request-scoped permission cache over the
// authorization backend. Callers create one per request and must not share
// it across requests.
func (m *Manager) Permissions() *PermissionCache {
	return NewPermissionCache(m.authz)
}

// Authenticate runs the per-request state machine. It mutates state in
// place; the caller persists it afterwards and applies the Result. A
// non-nil error is a fatal fault (verifier backend failure, failing event
// listener): the request must be aborted and no session state committed.
func (m *Manager) Authenticate(ctx context.Context, req Request, state *SessionState) (Result, error) {
	outcome := OutcomeUnverified
	creds := m.resolveCredentials(req)

	var (
		principal     *Principal
		setCookie     *SetCookie
		clearCookie   bool
		firePostLogin bool
	)

	switch {
	// Logout branch. Skipped while the one-shot relogin flag is up, so a
	// lingering logout signal doesn't log the user straight out again.
	case req.LogoutLevel > 0 && !state.Relogin:
		if err := m.notifier.Notify(ctx, EventPreLogout, creds.Username); err != nil {
			return Result{}, fmt.Errorf("preLogout listener: %w", err)
		}

		current := state.principal()
		for _, v := range m.verifiers {
			if err := v.Logout(ctx, current); err != nil {
				return Result{}, fmt.Errorf("%s backend logout: %w", v.Name, err)
			}
		}

		*state = *NewSessionState()
		state.Relogin = true

		if m.cfg.RememberCookie && creds.Username != ReservedAdministrator {
			clearCookie = true
		}

		if err := m.notifier.Notify(ctx, EventPostLogout, creds.Username); err != nil {
			return Result{}, fmt.Errorf("postLogout listener: %w", err)
		}

		slog.Info("logged out", slog.String("user", creds.Username))

		// The hard variant halts here and sends the client to the
		// standalone logout endpoint.
		if req.LogoutLevel > 1 {
			return Result{
				Decision:    DecisionRedirect,
				RedirectURL: "/logged-out",
				Outcome:     outcome,
				Username:    creds.Username,
				ClearCookie: clearCookie,
			}, nil
		}

	// Already-logged-in branch: trust the session only when the login
	// flag and the independently stored principal copy agree. A partial
	// write (flag without principal) is exactly what this cross-check is
	// for, and demotes the request to unauthenticated.
	case state.LoggedIn:
		if m.cfg.SessionValidation && state.consistent() {
			principal = state.Auth.Principal
			slog.Debug("authenticated from session", slog.String("user", principal.Name))
		} else {
			state.LoggedIn = false
			state.Auth = nil
		}

	// Fresh-login branch.
	default:
		if m.throttle.Locked(state.Attempts) {
			// Locked sessions get no re-evaluation: credentials are
			// ignored until the counter is cleared out-of-band.
			outcome = OutcomeLocked
			break
		}

		switch {
		case req.LoginAction != "" && creds.Username == "" && !m.hasBackend("none"):
			outcome = OutcomeMissingUsername

		case creds.Username != "" && m.cfg.LoginForm && m.mailerOn && req.LoginAction == ActionPasswordForgotten:
			// Recovery result is deliberately not surfaced: the outcome
			// is PasswordSent whether or not the username existed.
			m.recovery.Recover(ctx, creds.Username)
			outcome = OutcomePasswordSent

		default:
			firePostLogin = true
			if err := m.notifier.Notify(ctx, EventPreLogin, creds.Username); err != nil {
				return Result{}, fmt.Errorf("preLogin listener: %w", err)
			}

			var err error
			principal, outcome, err = m.verify(ctx, creds)
			if err != nil {
				return Result{}, err
			}

			if outcome == OutcomeSuccess {
				state.LoggedIn = true
				setCookie = m.rememberCookie(creds, principal.AuthBackend)
			}
		}
	}

	// Finalization: exactly one of redirect, inline form, or protocol
	// challenge, in that priority order.
	if !state.LoggedIn {
		result := Result{
			Outcome:           outcome,
			Username:          creds.Username,
			RecoveryAvailable: m.mailerOn,
			ClearCookie:       clearCookie,
		}

		switch {
		case m.cfg.LoginPageURL != "":
			result.Decision = DecisionRedirect
			result.RedirectURL = loginPageLocation(m.cfg.LoginPageURL, creds.Username, outcome)

		case m.cfg.LoginForm:
			result.Decision = DecisionRenderForm
			result.Attempts = m.throttle.RecordFormDisplay(state)
			result.Locked = m.throttle.Locked(result.Attempts)

		default:
			result.Decision = DecisionChallenge
			result.Realm = m.realm()
		}
		return result, nil
	}

	// Authenticated. Retire the one-shot relogin flag once the logout
	// signal is gone.
	if req.LogoutLevel == 0 && state.Relogin {
		state.Relogin = false
	}

	m.commitLogin(state, principal)

	if firePostLogin {
		if err := m.notifier.Notify(ctx, EventPostLogin, creds.Username); err != nil {
			return Result{}, fmt.Errorf("postLogin listener: %w", err)
		}
	}

	result := Result{
		Decision:  DecisionContinue,
		Outcome:   outcome,
		Principal: principal,
		Username:  principal.Name,
		SetCookie: setCookie,
	}
	// A stale logout signal on an authenticated request bounces to the
	// bare URL so the signal doesn't stick in reloads.
	if req.LogoutLevel > 0 {
		result.Decision = DecisionRedirect
		result.RedirectURL = req.SelfURL
	}
	return result, nil
}

// verify runs the reserved-account check and, for everyone else, the
// configured verifier chain in order, stopping at the first success. A
// verifier error is fatal and short-circuits the chain.
func (m *Manager) verify(ctx context.Context, creds Credentials) (*Principal, Outcome, error) {
	// Reserved accounts never reach the pluggable chain: a record created
	// in a backing store must not be able to impersonate them.
	if creds.Username == ReservedAdministrator || creds.Username == ReservedGuest {
		if !m.reservedPasswordMatches(creds) {
			return nil, OutcomeMismatch, nil
		}
		p := guestPrincipal()
		if creds.Username == ReservedAdministrator {
			p = administratorPrincipal()
		}
		slog.Info("logged in", slog.String("user", p.Name), slog.String("backend", "reserved"))
		return p, OutcomeSuccess, nil
	}

	outcome := OutcomeUnverified
	backend := ""
	for _, v := range m.verifiers {
		password := creds.Password
		hashed := creds.Hashed
		if v.CanHash() && !hashed {
			password = MD5Hex(password)
			hashed = true
		}

		var err error
		outcome, err = v.Validate(ctx, creds.Username, password, hashed)
		if err != nil {
			return nil, OutcomeError, fmt.Errorf("%s backend: %w", v.Name, err)
		}
		if outcome == OutcomeSuccess {
			backend = v.Name
			break
		}
	}

	if outcome != OutcomeSuccess {
		return nil, outcome, nil
	}

	principal, err := m.authz.Principal(ctx, creds.Username)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("authorization lookup for %q: %w", creds.Username, err)
	}
	principal.AuthBackend = backend
	if m.cfg.KeepPassword {
		principal.Password = creds.Password
	}

	slog.Info("logged in",
		slog.String("user", principal.Name),
		slog.String("backend", backend),
	)
	return principal, OutcomeSuccess, nil
}

// reservedPasswordMatches compares the submitted password against the
// statically configured one for a reserved account, optionally accepting
// an MD5 digest comparison. An empty configured password disables the
// account entirely.
func (m *Manager) reservedPasswordMatches(creds Credentials) bool {
	configured := m.cfg.GuestPassword
	if creds.Username == ReservedAdministrator {
		configured = m.cfg.AdminPassword
	}
	if configured == "" {
		return false
	}
	if creds.Password == configured {
		return true
	}
	if m.cfg.AllowMD5 {
		digest := creds.Password
		if !creds.Hashed {
			digest = MD5Hex(creds.Password)
		}
		return digest == strings.ToLower(configured)
	}
	return false
}

// rememberCookie builds the remember cookie for a successful login, or nil
// when cookies are off. The administrator account is never cookied,
// regardless of configuration. The secret is stored as an MD5 digest
// whenever the source or the accepting backend permits; a backend that
// cannot hash forces plaintext, which is why cookies should be off with
// such backends.
func (m *Manager) rememberCookie(creds Credentials, backend string) *SetCookie {
	if !m.cfg.RememberCookie || creds.Username == ReservedAdministrator {
		return nil
	}

	secret := creds.Password
	encoding := EncodingPlain
	if creds.Hashed {
		encoding = EncodingMD5
	} else if v, ok := m.verifierByName(backend); ok && v.CanHash() {
		secret = MD5Hex(creds.Password)
		encoding = EncodingMD5
	}

	return &SetCookie{
		Name: m.CookieName(),
		Value: EncodeRememberToken(RememberToken{
			Encoding: encoding,
			Username: creds.Username,
			Secret:   secret,
		}),
		MaxAge: m.cfg.RememberCookieExpire,
	}
}

// commitLogin writes the principal mirror and clears the throttle. Both
// copies of the authentication state are updated together, inside the one
// request, so a later request's cross-check can only ever see them agree.
func (m *Manager) commitLogin(state *SessionState, principal *Principal) {
	state.LoggedIn = true
	state.Auth = &AuthRecord{Authenticated: true, Principal: principal}
	m.throttle.Reset(state)
}

// ReloadPrincipal refreshes the session's principal from the authorization
// backend. Call after account data (name, levels) changed for the
// logged-in user.
func (m *Manager) ReloadPrincipal(ctx context.Context, state *SessionState) error {
	current := state.principal()
	if current == nil {
		return nil
	}
	fresh, err := m.authz.Principal(ctx, current.Name)
	if err != nil {
		return fmt.Errorf("reloading principal %q: %w", current.Name, err)
	}
	fresh.AuthBackend = current.AuthBackend
	state.Auth = &AuthRecord{Authenticated: true, Principal: fresh}
	return nil
}

// UserList merges the reserved accounts (when enabled) with every
// backend's known users, in backend order. This is the datasource for a
// username dropdown; rendering stays external.
func (m *Manager) UserList(ctx context.Context) ([]UserEntry, error) {
	var list []UserEntry
	if m.cfg.AdminPassword != "" {
		list = append(list, UserEntry{ID: ReservedAdministrator, DisplayName: "Administrator"})
	}
	if m.cfg.GuestPassword != "" {
		list = append(list, UserEntry{ID: ReservedGuest, DisplayName: "Guest"})
	}
	for _, v := range m.verifiers {
		entries, err := v.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s backend user list: %w", v.Name, err)
		}
		list = append(list, entries...)
	}
	return list, nil
}

// realm builds the Basic challenge realm from the application title,
// optionally suffixed with a timestamp so browsers re-prompt instead of
// replaying cached credentials.
func (m *Manager) realm() string {
	if m.cfg.ChangeRealm {
		return m.appTitle + " - " + time.Now().Format(time.RFC1123)
	}
	return m.appTitle
}

// hasBackend reports whether a backend name is configured.
func (m *Manager) hasBackend(name string) bool {
	for _, v := range m.verifiers {
		if v.Name == name {
			return true
		}
	}
	return false
}

// verifierByName finds a configured verifier by registry name.
func (m *Manager) verifierByName(name string) (NamedVerifier, bool) {
	for _, v := range m.verifiers {
		if v.Name == name {
			return v, true
		}
	}
	return NamedVerifier{}, false
}

// loginPageLocation appends the login/error query parameters to the
// configured login page URL. The outcome's numeric code is the stable
// contract with external login pages.
func loginPageLocation(page, username string, outcome Outcome) string {
	sep := "?"
	if strings.Contains(page, "?") {
		sep = "&"
	}
	params := url.Values{}
	params.Set("login", username)
	params.Set("error", strconv.Itoa(int(outcome)))
	return page + sep + params.Encode()
}
