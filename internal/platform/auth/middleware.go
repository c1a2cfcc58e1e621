package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Claims are the staff token claims issued to console users.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	// SigningKey is the shared HS256 secret.
	SigningKey []byte
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims.Subject, claims.Roles)))
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as an admin. It is
// only installed when ENV=development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithIdentity(c.Request().Context(), "dev-user", []string{"admin"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// IssueToken signs an HS256 staff token. Used by tests and the local tooling.
func IssueToken(cfg JWTConfig, claims Claims) (string, error) {
	if cfg.Issuer != "" && claims.Issuer == "" {
		claims.Issuer = cfg.Issuer
	}
	if cfg.Audience != "" && len(claims.Audience) == 0 {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}

// WithIdentity stores a user id and roles on ctx.
func WithIdentity(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
