package auth

import "context"

// stubVerifier implements Verifier with overridable function fields, the
// same pattern the repository mocks use elsewhere.
type stubVerifier struct {
	validateFunc func(ctx context.Context, username, password string, hashed bool) (Outcome, error)
	logoutFunc   func(ctx context.Context, p *Principal) error
	listFunc     func(ctx context.Context) ([]UserEntry, error)
	canHash      bool
	policy       RecoveryPolicy
}

func (s *stubVerifier) Validate(ctx context.Context, username, password string, hashed bool) (Outcome, error) {
	if s.validateFunc != nil {
		return s.validateFunc(ctx, username, password, hashed)
	}
	return OutcomeMismatch, nil
}

func (s *stubVerifier) CanHash() bool { return s.canHash }

func (s *stubVerifier) RecoveryPolicy() RecoveryPolicy { return s.policy }

func (s *stubVerifier) Logout(ctx context.Context, p *Principal) error {
	if s.logoutFunc != nil {
		return s.logoutFunc(ctx, p)
	}
	return nil
}

func (s *stubVerifier) ListUsers(ctx context.Context) ([]UserEntry, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	return nil, nil
}

// stubAuthorizer implements Authorizer with overridable function fields.
type stubAuthorizer struct {
	principalFunc func(ctx context.Context, username string) (*Principal, error)
	allowedFunc   func(ctx context.Context, p *Principal, entity, privilege string) (bool, error)
	attributeFunc func(ctx context.Context, p *Principal, attribute, mode string, record map[string]any) (bool, error)
}

func (s *stubAuthorizer) Principal(ctx context.Context, username string) (*Principal, error) {
	if s.principalFunc != nil {
		return s.principalFunc(ctx, username)
	}
	return &Principal{Name: username, Level: SingleLevel(1), AccessLevel: 1}, nil
}

func (s *stubAuthorizer) Allowed(ctx context.Context, p *Principal, entity, privilege string) (bool, error) {
	if s.allowedFunc != nil {
		return s.allowedFunc(ctx, p, entity, privilege)
	}
	return true, nil
}

func (s *stubAuthorizer) AttributeAllowed(ctx context.Context, p *Principal, attribute, mode string, record map[string]any) (bool, error) {
	if s.attributeFunc != nil {
		return s.attributeFunc(ctx, p, attribute, mode, record)
	}
	return true, nil
}

// stubAccounts implements AccountSource for recovery tests.
type stubAccounts struct {
	findFunc  func(ctx context.Context, username string) ([]Account, error)
	storeFunc func(ctx context.Context, id int64, plaintext string) error
	generated string
}

func (s *stubAccounts) FindByUsername(ctx context.Context, username string) ([]Account, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, username)
	}
	return nil, nil
}

func (s *stubAccounts) GeneratePassword() string {
	if s.generated != "" {
		return s.generated
	}
	return "generated-password"
}

func (s *stubAccounts) StorePassword(ctx context.Context, id int64, plaintext string) error {
	if s.storeFunc != nil {
		return s.storeFunc(ctx, id, plaintext)
	}
	return nil
}

// stubMailer implements Mailer and records the last message.
type stubMailer struct {
	sendFunc func(ctx context.Context, to []string, subject, body string) error
	sent     int
	lastTo   []string
	lastBody string
}

func (s *stubMailer) SendMail(ctx context.Context, to []string, subject, body string) error {
	s.sent++
	s.lastTo = to
	s.lastBody = body
	if s.sendFunc != nil {
		return s.sendFunc(ctx, to, subject, body)
	}
	return nil
}
