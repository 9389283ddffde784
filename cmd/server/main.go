// Command server runs the Keyward authentication gateway: an HTTP server
// whose routes sit behind the credential orchestrator. Configuration comes
// from the environment; see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyward/keyward/internal/auth"
	"github.com/keyward/keyward/internal/auth/backends"
	"github.com/keyward/keyward/internal/config"
	"github.com/keyward/keyward/internal/database"
	"github.com/keyward/keyward/internal/mailer"
	"github.com/keyward/keyward/internal/store/users"
	"github.com/keyward/keyward/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogger(cfg)

	// The database is only needed when a sql backend or the recovery
	// mailer is in play; a static-only deployment runs without one.
	var deps backends.Deps
	deps.Auth = cfg.Auth
	if needsDatabase(cfg) {
		db, err := database.NewMariaDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to mariadb: %w", err)
		}
		defer db.Close()

		if err := database.RunMigrations(db, "db/migrations"); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		deps.DB = db
	}

	redisClient, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()

	verifiers, err := backends.NewVerifiers(cfg.Auth.Verifiers, deps)
	if err != nil {
		return fmt.Errorf("wiring authentication backends: %w", err)
	}
	authorizer, err := backends.NewAuthorizer(cfg.Auth.Authorizer, deps)
	if err != nil {
		return fmt.Errorf("wiring authorization backend: %w", err)
	}

	var recovery *auth.Recovery
	if cfg.Auth.PasswordMailer && deps.DB != nil {
		recovery = auth.NewRecovery(users.NewStore(deps.DB), mailer.New(cfg.SMTP))
	}

	manager := auth.NewManager(cfg.Auth, cfg.AppTitle, verifiers, authorizer, recovery)

	sessions := auth.NewRedisSessionStore(redisClient, cfg.Auth.SessionTTL)
	guard := web.NewGuard(manager, sessions, nil)
	e := web.NewServer(cfg, guard, web.NewHandler(manager))

	// Serve until interrupted, then drain in-flight requests.
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		slog.Info("server started",
			slog.String("addr", addr),
			slog.String("env", cfg.Env),
			slog.Any("backends", cfg.Auth.Verifiers),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		slog.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// setupLogger configures slog: human-readable text in development, JSON in
// production.
func setupLogger(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// needsDatabase reports whether the configured backends or flows require
// MariaDB.
func needsDatabase(cfg *config.Config) bool {
	for _, name := range cfg.Auth.Verifiers {
		if name == "sql" {
			return true
		}
	}
	return cfg.Auth.Authorizer == "sql" || cfg.Auth.PasswordMailer
}
