package backends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/keyward/keyward/internal/auth"
)

// SQLVerifier validates against the accounts table. The stored hash format
// decides the comparison per record: bcrypt hashes (the `$2` prefix) are
// checked with bcrypt against the plaintext, anything else is treated as a
// lowercase MD5 hex digest. The hash-algorithm choice therefore lives
// entirely in the record layer.
type SQLVerifier struct {
	db *sql.DB
}

// NewSQLVerifier creates a database-backed verifier.
func NewSQLVerifier(db *sql.DB) *SQLVerifier {
	return &SQLVerifier{db: db}
}

// Validate looks the account up and compares the password against its
// stored hash. Database faults are fatal; an unknown account or a wrong
// password is a plain mismatch.
func (v *SQLVerifier) Validate(ctx context.Context, username, password string, hashed bool) (auth.Outcome, error) {
	var storedHash string
	err := v.db.QueryRowContext(ctx,
		`SELECT password_hash FROM accounts WHERE username = ? AND disabled = 0`,
		username,
	).Scan(&storedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.OutcomeMismatch, nil
	}
	if err != nil {
		return auth.OutcomeError, fmt.Errorf("querying account %q: %w", username, err)
	}

	if strings.HasPrefix(storedHash, "$2") {
		// bcrypt record. A pre-hashed (cookie MD5) password can never
		// match a bcrypt hash.
		if hashed {
			return auth.OutcomeMismatch, nil
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) != nil {
			return auth.OutcomeMismatch, nil
		}
		return auth.OutcomeSuccess, nil
	}

	// Legacy MD5 record. Hash the plaintext here; a cookie-sourced
	// password is already a digest.
	digest := password
	if !hashed {
		digest = auth.MD5Hex(password)
	}
	if equalFold(digest, storedHash) {
		return auth.OutcomeSuccess, nil
	}
	return auth.OutcomeMismatch, nil
}

// CanHash is false: records may be bcrypt, which needs the plaintext, so
// the orchestrator must not pre-hash. Validate hashes internally for the
// legacy MD5 records.
func (v *SQLVerifier) CanHash() bool { return false }

// RecoveryPolicy is recreatable: the recovery flow can generate and store
// a new password for a database record.
func (v *SQLVerifier) RecoveryPolicy() auth.RecoveryPolicy { return auth.RecoveryRecreatable }

// Logout is a no-op; database sessions carry no backend state.
func (v *SQLVerifier) Logout(ctx context.Context, p *auth.Principal) error { return nil }

// ListUsers returns all enabled account names.
func (v *SQLVerifier) ListUsers(ctx context.Context) ([]auth.UserEntry, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT username, display_name FROM accounts WHERE disabled = 0 ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var entries []auth.UserEntry
	for rows.Next() {
		var username string
		var display sql.NullString
		if err := rows.Scan(&username, &display); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		name := username
		if display.Valid && display.String != "" {
			name = display.String
		}
		entries = append(entries, auth.UserEntry{ID: username, DisplayName: name})
	}
	return entries, rows.Err()
}
