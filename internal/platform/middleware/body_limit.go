package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// DefaultBodyLimit applies when the configured limit is empty or malformed.
const DefaultBodyLimit int64 = 64 << 10

// BodyLimit rejects request bodies larger than limit with 413. Limits are
// human-readable sizes such as "64K" or "1M"; a bare number is bytes.
func BodyLimit(limit string) echo.MiddlewareFunc {
	max := ParseSize(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > max {
				return tooLarge(max)
			}

			// Content-Length may be missing or wrong.
			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: max, limit: max}
			return next(c)
		}
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	limit     int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.exceeded {
		return 0, tooLarge(r.limit)
	}

	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err := r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)
	if r.remaining < 0 {
		r.exceeded = true
		return 0, tooLarge(r.limit)
	}
	return n, err
}

func tooLarge(limit int64) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// ParseSize parses "512", "64K", "1M" or "1G" (an optional trailing B is
// accepted). Unparseable input yields DefaultBodyLimit.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")
	if s == "" {
		return DefaultBodyLimit
	}

	var multiplier int64 = 1
	switch s[len(s)-1] {
	case 'G':
		multiplier = 1 << 30
	case 'M':
		multiplier = 1 << 20
	case 'K':
		multiplier = 1 << 10
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return DefaultBodyLimit
	}
	return n * multiplier
}
