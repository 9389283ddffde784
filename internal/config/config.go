// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
//
// Backend names (AUTH_BACKENDS, AUTHZ_BACKEND) are validated against the
// known-backend sets at load time: a typo fails startup instead of failing
// the first login request.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// KnownVerifiers is the set of credential-verifier backend names that can
// appear in AUTH_BACKENDS.
var KnownVerifiers = map[string]bool{
	"static": true,
	"sql":    true,
	"none":   true,
}

// KnownAuthorizers is the set of authorization backend names accepted for
// AUTHZ_BACKEND.
var KnownAuthorizers = map[string]bool{
	"sql":  true,
	"open": true,
}

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// AppTitle names the application. The remember-cookie name and the
	// Basic-auth realm are derived from it.
	AppTitle string

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Auth holds everything the authentication orchestrator reads.
	Auth AuthConfig

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// SMTP holds the outbound mail settings used by password recovery.
	SMTP SMTPConfig
}

// AuthConfig holds authentication and authorization settings.
type AuthConfig struct {
	// Verifiers is the ordered list of credential-verifier backends,
	// parsed from the comma-separated AUTH_BACKENDS value. Order matters:
	// the first backend reporting success wins.
	Verifiers []string

	// Authorizer is the authorization backend name.
	Authorizer string

	// Scheme is the security scheme identifier passed through to the
	// authorization backend ("none", "level", "group").
	Scheme string

	// LoginForm selects form-based login; false means HTTP Basic auth.
	LoginForm bool

	// SessionValidation enables the already-logged-in short-circuit that
	// trusts (and cross-checks) session state. Disabled means every
	// request re-verifies credentials.
	SessionValidation bool

	// RememberCookie enables the persistent login cookie.
	RememberCookie bool

	// RememberCookieExpire is the remember-cookie lifetime in seconds.
	RememberCookieExpire int

	// AllowMD5 permits comparing MD5 digests against the reserved-account
	// passwords and marking cookies as MD5-encoded.
	AllowMD5 bool

	// MaxLoginAttempts locks the login form after this many displays.
	// 0 means unlimited.
	MaxLoginAttempts int

	// PasswordMailer enables the password-recovery mail flow. It only
	// becomes effective when at least one configured verifier reports a
	// recoverable password policy.
	PasswordMailer bool

	// AdminPassword is the static password for the reserved
	// "administrator" account. Empty disables the account.
	AdminPassword string

	// GuestPassword is the static password for the reserved "guest"
	// account. Empty disables the account.
	GuestPassword string

	// LoginPageURL, when set, makes the orchestrator redirect failed
	// requests there (with login/error query parameters) instead of
	// rendering the inline form.
	LoginPageURL string

	// KeepPassword retains the plaintext password on the principal for
	// the lifetime of the session. Needed by legacy encrypted-link
	// integrations; leave off otherwise.
	KeepPassword bool

	// ChangeRealm appends a timestamp to the Basic-auth realm so browsers
	// re-prompt instead of replaying cached credentials.
	ChangeRealm bool

	// SessionTTL is how long session state lives in Redis.
	SessionTTL time.Duration

	// StaticUsers maps usernames to passwords (or MD5 digests) for the
	// "static" verifier backend. Parsed from AUTH_STATIC_USERS as
	// comma-separated user:password pairs.
	StaticUsers map[string]string
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is
// set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "keyward").
	User string

	// Password is the MariaDB password (default: "keyward").
	Password string

	// Name is the database name (default: "keyward").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// SMTPConfig holds outbound mail parameters for the recovery mailer.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (587 typical for STARTTLS).
	Port int

	// Username and Password authenticate against the SMTP server.
	// Empty username skips authentication.
	Username string
	Password string

	// Encryption is "starttls", "ssl", or "none".
	Encryption string

	// FromName and FromAddress form the sender identity.
	FromName    string
	FromAddress string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing or a configured backend
// name is unknown.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		AppTitle: getEnv("APP_TITLE", "Keyward"),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Auth: AuthConfig{
			Verifiers:            splitList(getEnv("AUTH_BACKENDS", "sql")),
			Authorizer:           getEnv("AUTHZ_BACKEND", "sql"),
			Scheme:               getEnv("SECURITY_SCHEME", "level"),
			LoginForm:            getEnvBool("AUTH_LOGIN_FORM", true),
			SessionValidation:    getEnvBool("AUTH_SESSION", true),
			RememberCookie:       getEnvBool("AUTH_COOKIE", false),
			RememberCookieExpire: getEnvInt("AUTH_COOKIE_EXPIRE", 8*60*60),
			AllowMD5:             getEnvBool("AUTH_MD5", true),
			MaxLoginAttempts:     getEnvInt("MAX_LOGIN_ATTEMPTS", 0),
			PasswordMailer:       getEnvBool("AUTH_PASSWORD_MAILER", false),
			AdminPassword:        getEnv("ADMIN_PASSWORD", ""),
			GuestPassword:        getEnv("GUEST_PASSWORD", ""),
			LoginPageURL:         getEnv("LOGIN_PAGE_URL", ""),
			KeepPassword:         getEnvBool("AUTH_KEEP_PASSWORD", false),
			ChangeRealm:          getEnvBool("AUTH_CHANGE_REALM", false),
			SessionTTL:           getEnvDuration("SESSION_TTL", 12*time.Hour),
			StaticUsers:          parsePairs(getEnv("AUTH_STATIC_USERS", "")),
		},

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "keyward"),
			Password:        getEnv("DB_PASSWORD", "keyward"),
			Name:            getEnv("DB_NAME", "keyward"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			Encryption:  getEnv("SMTP_ENCRYPTION", "starttls"),
			FromName:    getEnv("SMTP_FROM_NAME", "Keyward"),
			FromAddress: getEnv("SMTP_FROM_ADDRESS", ""),
		},
	}

	if len(cfg.Auth.Verifiers) == 0 {
		return nil, fmt.Errorf("AUTH_BACKENDS must name at least one backend")
	}
	for _, name := range cfg.Auth.Verifiers {
		if !KnownVerifiers[name] {
			return nil, fmt.Errorf("unknown authentication backend %q in AUTH_BACKENDS", name)
		}
	}
	if !KnownAuthorizers[cfg.Auth.Authorizer] {
		return nil, fmt.Errorf("unknown authorization backend %q in AUTHZ_BACKEND", cfg.Auth.Authorizer)
	}

	// The recovery mailer writes plaintext passwords into mail; refuse a
	// configuration that enables it without a sender identity.
	if cfg.Auth.PasswordMailer && cfg.SMTP.FromAddress == "" {
		return nil, fmt.Errorf("AUTH_PASSWORD_MAILER requires SMTP_FROM_ADDRESS")
	}

	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.AdminPassword == "" && !containsSQL(cfg.Auth.Verifiers) {
			return nil, fmt.Errorf("production requires ADMIN_PASSWORD or a database-backed AUTH_BACKENDS entry")
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// containsSQL reports whether the verifier list includes the sql backend.
func containsSQL(names []string) bool {
	for _, n := range names {
		if n == "sql" {
			return true
		}
	}
	return false
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePairs parses "user:password,user2:password2" into a map. Malformed
// entries (no colon) are skipped.
func parsePairs(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		user, pw, ok := strings.Cut(part, ":")
		if !ok || user == "" {
			continue
		}
		out[user] = pw
	}
	return out
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", "false", ...) or returns
// the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "12h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
