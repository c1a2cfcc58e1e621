package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/scheduling"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/internal/platform/events"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/platform/slotlock"
	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
)

// app holds the wired server and the resources it must release.
type app struct {
	echo    *echo.Echo
	store   *scheduling.Store
	service *scheduling.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects the configured backends and builds the HTTP server.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	catalog, err := scheduling.NewSlotCatalog(cfg.SlotLabels())
	if err != nil {
		return nil, fmt.Errorf("slot catalog: %w", err)
	}
	roster, err := config.LoadRoster(cfg.RosterFile)
	if err != nil {
		return nil, err
	}

	var (
		repo     scheduling.AppointmentRepository
		dbHealth db.Pinger
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info().Msg("connected to database")
		repo, dbHealth = scheduling.NewAppointmentRepoPG(pool), pool
	default:
		repo = scheduling.NewMemoryRepo()
	}

	storeOpts := []scheduling.StoreOption{scheduling.WithRoster(roster), scheduling.WithLogger(logger)}
	var publisher scheduling.Publisher = events.Nop{}
	if cfg.RedisURL != "" {
		client, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		logger.Info().Msg("connected to redis")
		storeOpts = append(storeOpts, scheduling.WithSlotLocker(slotlock.NewRedisLocker(client, cfg.SlotLockTTL)))
		publisher = events.NewRedisPublisher(client, cfg.EventsChannel)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.store = scheduling.NewStore(repo, catalog, storeOpts...)
	a.service = scheduling.NewService(a.store, logger,
		scheduling.WithRecorder(telemetry.NewSchedulingMetrics(reg)),
		scheduling.WithPublisher(publisher),
	)
	a.echo = newServer(cfg, logger, a.service, reg, dbHealth)
	return a, nil
}

// newMemoryStore builds a store with no external backends.
func newMemoryStore(cfg *config.Config) (*scheduling.Store, error) {
	catalog, err := scheduling.NewSlotCatalog(cfg.SlotLabels())
	if err != nil {
		return nil, fmt.Errorf("slot catalog: %w", err)
	}
	roster, err := config.LoadRoster(cfg.RosterFile)
	if err != nil {
		return nil, err
	}
	return scheduling.NewStore(scheduling.NewMemoryRepo(), catalog, scheduling.WithRoster(roster)), nil
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		AppName:         "clinic-server",
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 15 * time.Minute,
	}
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// newServer assembles the echo instance: global middleware, health and
// metrics endpoints, and the authenticated /api/v1 group.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *scheduling.Service, reg *prometheus.Registry, dbHealth db.Pinger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpMetrics := telemetry.NewHTTPMetrics(reg)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(httpMetrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if dbHealth != nil {
		e.GET("/health/db", db.HealthHandler(dbHealth, 5*time.Second))
	}
	e.GET("/metrics", telemetry.Handler(reg))

	apiV1 := e.Group("/api/v1")
	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 || rateLimitCfg.BurstSize <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	scheduling.NewHandler(svc).RegisterRoutes(apiV1)
	return e
}

func isServerClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed)
}
