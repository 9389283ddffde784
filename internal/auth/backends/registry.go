// Package backends contains the credential-verifier and authorization
// backend implementations, resolved by name from a static registry at
// startup. Unknown names fail at wiring time, never at request time.
package backends

import (
	"database/sql"
	"fmt"

	"github.com/keyward/keyward/internal/auth"
	"github.com/keyward/keyward/internal/config"
)

// Deps carries the shared infrastructure the backend factories may need.
type Deps struct {
	DB   *sql.DB
	Auth config.AuthConfig
}

// verifierFactories is the static registry of credential-verifier
// backends. config.KnownVerifiers must list the same names.
var verifierFactories = map[string]func(Deps) (auth.Verifier, error){
	"static": func(d Deps) (auth.Verifier, error) {
		return NewStaticVerifier(d.Auth.StaticUsers, d.Auth.AllowMD5), nil
	},
	"sql": func(d Deps) (auth.Verifier, error) {
		if d.DB == nil {
			return nil, fmt.Errorf("sql backend requires a database connection")
		}
		return NewSQLVerifier(d.DB), nil
	},
	"none": func(Deps) (auth.Verifier, error) {
		return NoneVerifier{}, nil
	},
}

// authorizerFactories is the static registry of authorization backends.
// config.KnownAuthorizers must list the same names.
var authorizerFactories = map[string]func(Deps) (auth.Authorizer, error){
	"sql": func(d Deps) (auth.Authorizer, error) {
		if d.DB == nil {
			return nil, fmt.Errorf("sql authorization backend requires a database connection")
		}
		return NewSQLAuthorizer(d.DB, d.Auth.Scheme), nil
	},
	"open": func(Deps) (auth.Authorizer, error) {
		return OpenAuthorizer{}, nil
	},
}

// NewVerifiers resolves the ordered backend list. The returned slice keeps
// the configured order, which is also the order the orchestrator consults
// them in.
func NewVerifiers(names []string, deps Deps) ([]auth.NamedVerifier, error) {
	verifiers := make([]auth.NamedVerifier, 0, len(names))
	for _, name := range names {
		factory, ok := verifierFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown authentication backend %q", name)
		}
		v, err := factory(deps)
		if err != nil {
			return nil, fmt.Errorf("creating %s backend: %w", name, err)
		}
		verifiers = append(verifiers, auth.NamedVerifier{Name: name, Verifier: v})
	}
	return verifiers, nil
}

// NewAuthorizer resolves the authorization backend by name.
func NewAuthorizer(name string, deps Deps) (auth.Authorizer, error) {
	factory, ok := authorizerFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown authorization backend %q", name)
	}
	a, err := factory(deps)
	if err != nil {
		return nil, fmt.Errorf("creating %s authorization backend: %w", name, err)
	}
	return a, nil
}
