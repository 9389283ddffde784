package auth

import (
	"context"
	"errors"
	"testing"
)

func TestPermissionCacheMemoizes(t *testing.T) {
	calls := 0
	authz := &stubAuthorizer{
		allowedFunc: func(ctx context.Context, p *Principal, entity, privilege string) (bool, error) {
			calls++
			return privilege == "view", nil
		},
	}
	cache := NewPermissionCache(authz)
	p := &Principal{Name: "frank", Level: SingleLevel(1)}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := cache.Allowed(ctx, p, "orders", "view")
		if err != nil {
			t.Fatalf("Allowed: %v", err)
		}
		if !ok {
			t.Fatal("expected view to be allowed")
		}
	}
	if ok, _ := cache.Allowed(ctx, p, "orders", "delete"); ok {
		t.Error("expected delete to be denied")
	}

	// One backend call per distinct (entity, privilege).
	if calls != 2 {
		t.Errorf("authorizer called %d times, want 2", calls)
	}
}

func TestPermissionCacheDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("backend down")
	calls := 0
	authz := &stubAuthorizer{
		allowedFunc: func(ctx context.Context, p *Principal, entity, privilege string) (bool, error) {
			calls++
			if calls == 1 {
				return false, boom
			}
			return true, nil
		},
	}
	cache := NewPermissionCache(authz)
	ctx := context.Background()

	if _, err := cache.Allowed(ctx, nil, "orders", "view"); !errors.Is(err, boom) {
		t.Fatalf("first call error = %v, want %v", err, boom)
	}

	// The failed lookup must be retried, not remembered as a decision.
	ok, err := cache.Allowed(ctx, nil, "orders", "view")
	if err != nil || !ok {
		t.Errorf("second call = (%v, %v), want (true, nil)", ok, err)
	}
	if calls != 2 {
		t.Errorf("authorizer called %d times, want 2", calls)
	}
}

func TestPermissionCacheAttributePassthrough(t *testing.T) {
	calls := 0
	authz := &stubAuthorizer{
		attributeFunc: func(ctx context.Context, p *Principal, attribute, mode string, record map[string]any) (bool, error) {
			calls++
			return false, nil
		},
	}
	cache := NewPermissionCache(authz)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, err := cache.AttributeAllowed(ctx, nil, "salary", "edit", nil); ok || err != nil {
			t.Fatalf("AttributeAllowed = (%v, %v), want (false, nil)", ok, err)
		}
	}
	// Attribute decisions depend on the record and are never cached.
	if calls != 2 {
		t.Errorf("authorizer called %d times, want 2", calls)
	}
}
