package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// Account is the slice of a user record the recovery flow needs.
type Account struct {
	ID       int64
	Username string
	Email    string
}

// AccountSource is the record store the recovery flow works against.
// Password hashing lives behind StorePassword: the record layer owns the
// algorithm choice and only ever persists the hash.
type AccountSource interface {
	// FindByUsername returns all records matching the username.
	FindByUsername(ctx context.Context, username string) ([]Account, error)

	// GeneratePassword produces a fresh random password.
	GeneratePassword() string

	// StorePassword hashes and persists a new password for the record.
	StorePassword(ctx context.Context, id int64, plaintext string) error
}

// Mailer delivers the recovery mail. The plaintext password leaves the
// system only through this side channel.
type Mailer interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
}

// Recovery regenerates a lost password and mails it to the account's
// address.
type Recovery struct {
	accounts AccountSource
	mailer   Mailer
}

// NewRecovery creates the recovery flow over the given record store and
// mailer.
func NewRecovery(accounts AccountSource, mailer Mailer) *Recovery {
	return &Recovery{accounts: accounts, mailer: mailer}
}

// Recover looks up exactly one record for the username, generates a new
// password, persists its hash, and mails the plaintext to the record's
// address. It reports only success or failure: the reason (unknown user,
// ambiguous match, missing email, send fault) is logged but never
// surfaced, so callers cannot learn whether a username exists.
func (r *Recovery) Recover(ctx context.Context, username string) bool {
	records, err := r.accounts.FindByUsername(ctx, username)
	if err != nil {
		slog.Warn("password recovery lookup failed", slog.Any("error", err))
		return false
	}
	if len(records) != 1 {
		slog.Debug("password recovery skipped",
			slog.String("user", username),
			slog.Int("matches", len(records)),
		)
		return false
	}

	record := records[0]
	if record.Email == "" {
		slog.Debug("password recovery skipped, no email address", slog.String("user", username))
		return false
	}

	newPassword := r.accounts.GeneratePassword()
	if err := r.accounts.StorePassword(ctx, record.ID, newPassword); err != nil {
		slog.Warn("password recovery store failed",
			slog.String("user", username),
			slog.Any("error", err),
		)
		return false
	}

	subject := "Your new password"
	body := fmt.Sprintf(
		"A new password was generated for your account.\n\nusername: %s\npassword: %s\n",
		record.Username, newPassword,
	)
	if err := r.mailer.SendMail(ctx, []string{record.Email}, subject, body); err != nil {
		slog.Warn("password recovery mail failed",
			slog.String("user", username),
			slog.Any("error", err),
		)
		return false
	}

	slog.Info("password recovery mail sent", slog.String("user", username))
	return true
}
