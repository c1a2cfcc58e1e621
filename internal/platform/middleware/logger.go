package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Logger writes one structured line per request. Server errors log at error
// level, client errors at warn.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				// Let echo write the response so the logged status is final.
				c.Error(err)
			}

			status := c.Response().Status
			var evt *zerolog.Event
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn().Err(err)
			default:
				evt = logger.Info()
			}

			rid, _ := c.Get(RequestIDKey).(string)
			evt.
				Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(req.Context())).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return nil
		}
	}
}
