package backends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyward/keyward/internal/auth"
)

// SQLAuthorizer builds principals from the accounts table and decides
// permissions from the access_rules / attribute_rules tables under the
// level scheme. The "none" scheme allows everything and skips the rule
// tables entirely.
type SQLAuthorizer struct {
	db     *sql.DB
	scheme string
}

// NewSQLAuthorizer creates a database-backed authorization provider.
func NewSQLAuthorizer(db *sql.DB, scheme string) *SQLAuthorizer {
	return &SQLAuthorizer{db: db, scheme: scheme}
}

// Principal loads the account record and its level memberships. A single
// membership yields the single-level variant, several yield the set
// variant.
func (a *SQLAuthorizer) Principal(ctx context.Context, username string) (*auth.Principal, error) {
	var accountID int64
	var accessLevel int
	err := a.db.QueryRowContext(ctx,
		`SELECT id, access_level FROM accounts WHERE username = ?`,
		username,
	).Scan(&accountID, &accessLevel)
	if errors.Is(err, sql.ErrNoRows) {
		// Verified by a backend that doesn't share the accounts table
		// (static, none). A minimal principal keeps the request going.
		return &auth.Principal{Name: username, Level: auth.SingleLevel(0)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %q: %w", username, err)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT level_id FROM account_levels WHERE account_id = ? ORDER BY level_id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying levels for %q: %w", username, err)
	}
	defer rows.Close()

	var levels []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning level row: %w", err)
		}
		levels = append(levels, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading level rows: %w", err)
	}

	level := auth.SingleLevel(0)
	switch len(levels) {
	case 0:
	case 1:
		level = auth.SingleLevel(levels[0])
	default:
		level = auth.LevelSet(levels...)
	}

	return &auth.Principal{
		Name:        username,
		Level:       level,
		AccessLevel: accessLevel,
	}, nil
}

// Allowed checks the access_rules table: the privilege is granted when any
// rule for (entity, privilege) names a level the principal holds. No rule
// means deny, except for principals at the administrator access level.
func (a *SQLAuthorizer) Allowed(ctx context.Context, p *auth.Principal, entity, privilege string) (bool, error) {
	if a.scheme == "none" {
		return true, nil
	}
	if p == nil {
		return false, nil
	}
	if p.AccessLevel >= auth.AdministratorAccessLevel {
		return true, nil
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT level_id FROM access_rules WHERE entity = ? AND privilege = ?`,
		entity, privilege,
	)
	if err != nil {
		return false, fmt.Errorf("querying access rules for %s.%s: %w", entity, privilege, err)
	}
	defer rows.Close()

	var ruleLevels []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return false, fmt.Errorf("scanning access rule: %w", err)
		}
		ruleLevels = append(ruleLevels, id)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("reading access rules: %w", err)
	}
	if len(ruleLevels) == 0 {
		return false, nil
	}
	return p.HasLevel(auth.LevelSet(ruleLevels...)), nil
}

// AttributeAllowed checks the attribute_rules table for (attribute, mode).
// Attributes without rules are unrestricted.
func (a *SQLAuthorizer) AttributeAllowed(ctx context.Context, p *auth.Principal, attribute, mode string, record map[string]any) (bool, error) {
	if a.scheme == "none" {
		return true, nil
	}
	if p != nil && p.AccessLevel >= auth.AdministratorAccessLevel {
		return true, nil
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT level_id FROM attribute_rules WHERE attribute = ? AND mode = ?`,
		attribute, mode,
	)
	if err != nil {
		return false, fmt.Errorf("querying attribute rules for %s/%s: %w", attribute, mode, err)
	}
	defer rows.Close()

	var ruleLevels []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return false, fmt.Errorf("scanning attribute rule: %w", err)
		}
		ruleLevels = append(ruleLevels, id)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("reading attribute rules: %w", err)
	}
	if len(ruleLevels) == 0 {
		return true, nil
	}
	return p.HasLevel(auth.LevelSet(ruleLevels...)), nil
}
