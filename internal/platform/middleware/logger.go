package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mentalspace/practice-api/internal/platform/auth"
)

// Logger emits one structured log line per request. The line carries the
// authenticated user id when present so request logs can be correlated
// with the audit trail.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			// Re-read the request after the chain ran: auth middleware
			// swaps in a context carrying the authenticated identity.
			if userID := auth.UserIDFromContext(c.Request().Context()); userID != "" {
				evt = evt.Str("user_id", userID)
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
