package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testSessionStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSessionStore(client, time.Hour), mr
}

func TestRedisSessionStoreMissingKey(t *testing.T) {
	store, _ := testSessionStore(t)

	state, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.LoggedIn || state.Auth != nil || state.Attempts != 0 {
		t.Errorf("state = %+v, want fresh empty state", state)
	}
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	store, _ := testSessionStore(t)
	ctx := context.Background()

	in := &SessionState{
		LoggedIn: true,
		Attempts: 0,
		Auth: &AuthRecord{
			Authenticated: true,
			Principal: &Principal{
				Name:        "frank",
				Level:       LevelSet(2, 4),
				AccessLevel: 5,
				AuthBackend: "sql",
				Password:    "must-not-persist",
			},
		},
	}
	if err := store.Save(ctx, "sid1", in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := store.Load(ctx, "sid1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !out.consistent() {
		t.Fatalf("state = %+v, want consistent logged-in state", out)
	}
	p := out.Auth.Principal
	if p.Name != "frank" || p.AccessLevel != 5 || p.AuthBackend != "sql" {
		t.Errorf("principal = %+v", p)
	}
	if !p.Level.IsSet() || len(p.Level.Values()) != 2 {
		t.Errorf("level = %+v, want set of 2", p.Level)
	}
	// The plaintext password never reaches the store.
	if p.Password != "" {
		t.Errorf("Password = %q, must not be serialized", p.Password)
	}
}

func TestRedisSessionStoreCorruptValue(t *testing.T) {
	store, mr := testSessionStore(t)
	mr.Set(sessionKeyPrefix+"sid1", "{not json")

	state, err := store.Load(context.Background(), "sid1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.LoggedIn {
		t.Error("corrupt session must degrade to not-logged-in")
	}
}

func TestRedisSessionStoreDelete(t *testing.T) {
	store, _ := testSessionStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sid1", &SessionState{LoggedIn: true, Auth: &AuthRecord{Authenticated: true, Principal: &Principal{Name: "frank"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "sid1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	state, err := store.Load(ctx, "sid1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.LoggedIn {
		t.Error("deleted session must load as fresh state")
	}
}

func TestRedisSessionStoreTTL(t *testing.T) {
	store, mr := testSessionStore(t)

	if err := store.Save(context.Background(), "sid1", NewSessionState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(sessionKeyPrefix + "sid1"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
}
