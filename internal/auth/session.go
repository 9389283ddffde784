package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionState is the per-request snapshot of everything the orchestrator
// remembers between requests. The caller loads it before authenticating and
// persists it afterwards; the orchestrator never touches the store itself.
//
// LoggedIn and Auth deliberately duplicate each other: Auth is a second,
// independently stored copy of the authenticated principal. A request is
// trusted as already-authenticated only when both agree, which catches
// partial session writes and fixation attempts.
type SessionState struct {
	// LoggedIn is set true only after successful verification.
	LoggedIn bool `json:"logged_in"`

	// Relogin is a one-shot flag set by logout. It suppresses a repeated
	// logout while the logout signal is still present in the request, and
	// is cleared on the first authenticated request without the signal.
	Relogin bool `json:"relogin,omitempty"`

	// Attempts counts login form displays for the throttle. Reset to zero
	// on successful authentication.
	Attempts int `json:"attempts,omitempty"`

	// Auth is the cross-check copy of the authenticated principal.
	Auth *AuthRecord `json:"auth,omitempty"`
}

// AuthRecord is the independently stored authentication mirror.
type AuthRecord struct {
	Authenticated bool       `json:"authenticated"`
	Principal     *Principal `json:"principal,omitempty"`
}

// NewSessionState returns an empty, unauthenticated state.
func NewSessionState() *SessionState {
	return &SessionState{}
}

// principal returns the mirrored principal, or nil.
func (s *SessionState) principal() *Principal {
	if s.Auth == nil {
		return nil
	}
	return s.Auth.Principal
}

// consistent reports whether the logged-in flag and the mirror copy agree.
func (s *SessionState) consistent() bool {
	return s.LoggedIn && s.Auth != nil && s.Auth.Authenticated && s.Auth.Principal != nil
}

// SessionStore persists session state between requests, keyed by an opaque
// session id. Implementations are last-writer-wins across requests; a Save
// must apply the whole state in one write so no reader observes a partial
// session.
type SessionStore interface {
	// Load returns the state for sid, or a fresh empty state if none is
	// stored. Errors are infrastructure faults only.
	Load(ctx context.Context, sid string) (*SessionState, error)

	// Save persists the whole state under sid.
	Save(ctx context.Context, sid string, state *SessionState) error

	// Delete removes the state for sid.
	Delete(ctx context.Context, sid string) error
}

// sessionKeyPrefix is the Redis key prefix for session state.
const sessionKeyPrefix = "authstate:"

// RedisSessionStore keeps session state in Redis as a single JSON value per
// session id, so every save is one atomic SET.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store with the given
// state lifetime.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Load fetches and decodes the state for sid. A missing key or an
// undecodable value yields a fresh empty state: a corrupt session must
// degrade to "not logged in", not to a server fault.
func (s *RedisSessionStore) Load(ctx context.Context, sid string) (*SessionState, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sid).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewSessionState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return NewSessionState(), nil
	}
	return &state, nil
}

// Save encodes and stores the state under sid with the configured TTL.
func (s *RedisSessionStore) Save(ctx context.Context, sid string, state *SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session state: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sid, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}

// Delete removes the state for sid.
func (s *RedisSessionStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("deleting session state: %w", err)
	}
	return nil
}
