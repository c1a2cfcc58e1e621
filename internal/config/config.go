package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clinicdesk/clinicdesk/internal/domain/scheduling"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	AuthDevelopment = "development"
	AuthJWT         = "jwt"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SlotLockTTL    time.Duration `mapstructure:"SLOT_LOCK_TTL"`
	EventsChannel  string        `mapstructure:"EVENTS_CHANNEL"`
	SlotCatalog    string        `mapstructure:"SLOT_CATALOG"`
	RosterFile     string        `mapstructure:"ROSTER_FILE"`
	AuthMode       string        `mapstructure:"AUTH_MODE"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`
	SeedDemo       bool          `mapstructure:"SEED_DEMO"`
	TLSEnabled     bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "SLOT_LOCK_TTL", "EVENTS_CHANNEL", "SLOT_CATALOG", "ROSTER_FILE",
	"AUTH_MODE", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT", "SEED_DEMO", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SLOT_LOCK_TTL", "5s")
	v.SetDefault("EVENTS_CHANNEL", "scheduling.appointments")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("SEED_DEMO", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = splitList(cfg.CORSOrigins[0])
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments run without authentication and everything else requires
// signed staff tokens.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthDevelopment
	}
	return AuthJWT
}

// SlotLabels returns the configured slot labels, empty when the default
// catalog should be used.
func (c *Config) SlotLabels() []string {
	return splitList(c.SlotCatalog)
}

// Validate checks that the configuration is consistent and safe to run.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMemory, StorePostgres, c.StoreDriver)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=development is not allowed when ENV=production")
		}
	case AuthJWT:
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes when AUTH_MODE is %q", AuthJWT)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthDevelopment, AuthJWT, mode)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	if c.RedisURL != "" && c.SlotLockTTL <= 0 {
		return fmt.Errorf("SLOT_LOCK_TTL must be positive when REDIS_URL is set")
	}
	if _, err := scheduling.NewSlotCatalog(c.SlotLabels()); err != nil {
		return fmt.Errorf("SLOT_CATALOG: %w", err)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
