package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// limiterStore holds one limiter per caller key.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)
		s.limiters[key] = lim
	}
	return lim
}

// retryAfter returns whole seconds until lim can admit another request.
func retryAfter(lim *rate.Limiter) int {
	r := lim.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 1
	}
	secs := int(math.Ceil(r.Delay().Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// RateLimit limits requests per authenticated user, falling back to the
// client IP for anonymous requests.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				key = "user:" + uid
			}

			lim := store.get(key)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if !lim.Allow() {
				h.Set("Retry-After", strconv.Itoa(retryAfter(lim)))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
