package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the echo context key holding the request id.
	RequestIDKey = "request_id"
)

// RequestID propagates an inbound X-Request-ID or assigns a new one, and
// echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			c.Set(RequestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}
