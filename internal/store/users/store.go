// Package users is the account record store: the persistence layer behind
// the sql verifier backend and the password recovery flow. All SQL lives
// here -- nothing leaks out past the auth.AccountSource contract.
package users

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/keyward/keyward/internal/auth"
)

// passwordAlphabet excludes easily confused characters (0/O, 1/l/I) since
// generated passwords are read out of an email.
const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

// generatedPasswordLength is the length of recovery-generated passwords.
const generatedPasswordLength = 12

// Store implements auth.AccountSource against the accounts table.
// Generated passwords are persisted as bcrypt hashes; the sql verifier
// recognizes them by prefix.
type Store struct {
	db *sql.DB
}

// NewStore creates an account store over the given pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByUsername returns every account row matching the username. The
// recovery flow requires exactly one match; returning all of them lets it
// make that call.
func (s *Store) FindByUsername(ctx context.Context, username string) ([]auth.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email FROM accounts WHERE username = ?`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("querying accounts for %q: %w", username, err)
	}
	defer rows.Close()

	var accounts []auth.Account
	for rows.Next() {
		var a auth.Account
		var email sql.NullString
		if err := rows.Scan(&a.ID, &a.Username, &email); err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		a.Email = email.String
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GeneratePassword produces a random password from the restricted
// alphabet.
func (s *Store) GeneratePassword() string {
	out := make([]byte, generatedPasswordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform's entropy source
			// is broken; there is no sane fallback for password material.
			panic(fmt.Sprintf("reading random bytes: %v", err))
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out)
}

// StorePassword hashes the plaintext with bcrypt and persists only the
// hash.
func (s *Store) StorePassword(ctx context.Context, id int64, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ?`,
		string(hash), id,
	)
	if err != nil {
		return fmt.Errorf("updating password for account %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("account %d not found", id)
	}
	return nil
}
