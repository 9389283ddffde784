package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// attemptWindow tracks credential submissions for one client/account pair
// within a sliding window.
type attemptWindow struct {
	count int
	start time.Time
}

// LoginRateLimit throttles credential submissions, keyed by client IP plus
// the submitted username. The session-level attempt counter caps how often
// the login form re-renders per session; this edge limiter caps guesses
// per client and account, so discarding the session cookie doesn't buy an
// attacker a fresh counter. Exceeding the limit returns 429.
func LoginRateLimit(maxAttempts int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	windows := make(map[string]*attemptWindow)

	// Expired windows are swept in the background so idle accounts don't
	// accumulate.
	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			now := time.Now()
			for key, w := range windows {
				if now.Sub(w.start) > window*2 {
					delete(windows, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + "|" + c.FormValue("auth_user")
			now := time.Now()

			mu.Lock()
			w, exists := windows[key]
			if !exists || now.Sub(w.start) > window {
				windows[key] = &attemptWindow{count: 1, start: now}
				mu.Unlock()
				return next(c)
			}

			w.count++
			if w.count > maxAttempts {
				mu.Unlock()
				slog.Warn("login attempts throttled",
					slog.String("ip", c.RealIP()),
					slog.String("user", c.FormValue("auth_user")),
				)
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Too many login attempts. Please try again later.",
				})
			}
			mu.Unlock()
			return next(c)
		}
	}
}
