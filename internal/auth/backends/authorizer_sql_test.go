package backends

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/keyward/keyward/internal/auth"
)

// tableLookup dispatches a query to canned rows by the table it reads.
// Each table answers once; the backends never re-query a table within one
// call.
func tableLookup(tables map[string]driver.Rows) fakeQueryFunc {
	return func(query string, args []driver.NamedValue) (driver.Rows, error) {
		for table, rows := range tables {
			if strings.Contains(query, "FROM "+table) {
				return rows, nil
			}
		}
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
}

func levelRows(ids ...int) driver.Rows {
	rows := make([][]driver.Value, len(ids))
	for i, id := range ids {
		rows[i] = []driver.Value{int64(id)}
	}
	return cannedRows([]string{"level_id"}, rows...)
}

func TestSQLAuthorizerPrincipal(t *testing.T) {
	cases := []struct {
		name       string
		levels     []int
		wantSet    bool
		wantValues []int
	}{
		{"no memberships", nil, false, []int{0}},
		{"single membership", []int{4}, false, []int{4}},
		{"several memberships", []int{2, 5}, true, []int{2, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := fakeDB(tableLookup(map[string]driver.Rows{
				"accounts":       cannedRows([]string{"id", "access_level"}, []driver.Value{int64(7), int64(3)}),
				"account_levels": levelRows(tc.levels...),
			}))
			a := NewSQLAuthorizer(db, "level")

			p, err := a.Principal(context.Background(), "frank")
			if err != nil {
				t.Fatalf("Principal: %v", err)
			}
			if p.Name != "frank" || p.AccessLevel != 3 {
				t.Errorf("principal = %+v, want frank with access level 3", p)
			}
			if p.Level.IsSet() != tc.wantSet {
				t.Errorf("IsSet = %v, want %v", p.Level.IsSet(), tc.wantSet)
			}
			got := p.Level.Values()
			if len(got) != len(tc.wantValues) {
				t.Fatalf("levels = %v, want %v", got, tc.wantValues)
			}
			for i := range got {
				if got[i] != tc.wantValues[i] {
					t.Errorf("levels = %v, want %v", got, tc.wantValues)
				}
			}
		})
	}
}

func TestSQLAuthorizerPrincipalUnknownAccount(t *testing.T) {
	// Verified by a backend that doesn't share the accounts table: the
	// principal is minimal but the request keeps going.
	db := fakeDB(tableLookup(map[string]driver.Rows{
		"accounts": cannedRows([]string{"id", "access_level"}),
	}))
	a := NewSQLAuthorizer(db, "level")

	p, err := a.Principal(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if p.Name != "ghost" || p.AccessLevel != 0 {
		t.Errorf("principal = %+v, want minimal ghost", p)
	}
}

func TestSQLAuthorizerAllowed(t *testing.T) {
	member := &auth.Principal{Name: "frank", Level: auth.LevelSet(1, 3)}

	t.Run("none scheme grants without rules", func(t *testing.T) {
		a := NewSQLAuthorizer(nil, "none")
		ok, err := a.Allowed(context.Background(), member, "accounts", "admin")
		if err != nil || !ok {
			t.Errorf("Allowed = %v, %v, want true", ok, err)
		}
	})

	t.Run("administrator bypasses rules", func(t *testing.T) {
		a := NewSQLAuthorizer(nil, "level")
		admin := &auth.Principal{Name: "root", AccessLevel: auth.AdministratorAccessLevel}
		ok, err := a.Allowed(context.Background(), admin, "accounts", "admin")
		if err != nil || !ok {
			t.Errorf("Allowed = %v, %v, want true", ok, err)
		}
	})

	t.Run("nil principal denied", func(t *testing.T) {
		a := NewSQLAuthorizer(nil, "level")
		ok, err := a.Allowed(context.Background(), nil, "accounts", "admin")
		if err != nil || ok {
			t.Errorf("Allowed = %v, %v, want false", ok, err)
		}
	})

	t.Run("rule names a held level", func(t *testing.T) {
		db := fakeDB(tableLookup(map[string]driver.Rows{
			"access_rules": levelRows(3, 8),
		}))
		ok, err := NewSQLAuthorizer(db, "level").Allowed(context.Background(), member, "accounts", "edit")
		if err != nil || !ok {
			t.Errorf("Allowed = %v, %v, want true", ok, err)
		}
	})

	t.Run("rules only for other levels", func(t *testing.T) {
		db := fakeDB(tableLookup(map[string]driver.Rows{
			"access_rules": levelRows(9),
		}))
		ok, err := NewSQLAuthorizer(db, "level").Allowed(context.Background(), member, "accounts", "edit")
		if err != nil || ok {
			t.Errorf("Allowed = %v, %v, want false", ok, err)
		}
	})

	t.Run("no rules means deny", func(t *testing.T) {
		db := fakeDB(tableLookup(map[string]driver.Rows{
			"access_rules": levelRows(),
		}))
		ok, err := NewSQLAuthorizer(db, "level").Allowed(context.Background(), member, "accounts", "edit")
		if err != nil || ok {
			t.Errorf("Allowed = %v, %v, want false", ok, err)
		}
	})
}

func TestSQLAuthorizerAttributeAllowed(t *testing.T) {
	member := &auth.Principal{Name: "frank", Level: auth.SingleLevel(3)}

	t.Run("no rules means unrestricted", func(t *testing.T) {
		db := fakeDB(tableLookup(map[string]driver.Rows{
			"attribute_rules": levelRows(),
		}))
		ok, err := NewSQLAuthorizer(db, "level").AttributeAllowed(context.Background(), member, "salary", "view", nil)
		if err != nil || !ok {
			t.Errorf("AttributeAllowed = %v, %v, want true", ok, err)
		}
	})

	t.Run("rule restricts to other levels", func(t *testing.T) {
		db := fakeDB(tableLookup(map[string]driver.Rows{
			"attribute_rules": levelRows(7),
		}))
		ok, err := NewSQLAuthorizer(db, "level").AttributeAllowed(context.Background(), member, "salary", "view", nil)
		if err != nil || ok {
			t.Errorf("AttributeAllowed = %v, %v, want false", ok, err)
		}
	})
}

// Allowed must surface a database fault, not silently deny.
func TestSQLAuthorizerQueryFault(t *testing.T) {
	db := fakeDB(func(query string, args []driver.NamedValue) (driver.Rows, error) {
		return nil, errors.New("connection reset")
	})
	member := &auth.Principal{Name: "frank", Level: auth.SingleLevel(3)}

	if _, err := NewSQLAuthorizer(db, "level").Allowed(context.Background(), member, "accounts", "edit"); err == nil {
		t.Error("expected an error from a failing rules query")
	}
}
