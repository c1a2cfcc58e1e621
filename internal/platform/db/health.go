package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStats is the connection pool snapshot reported by /health/db.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func poolStats(stat *pgxpool.Stat) *PoolStats {
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// DBHealth is the /health/db response body.
type DBHealth struct {
	Status    string     `json:"status"`
	LatencyMS int64      `json:"latency_ms"`
	Error     string     `json:"error,omitempty"`
	Pool      *PoolStats `json:"pool,omitempty"`
}

// HealthHandler pings the appointment database within timeout and answers 503
// when it does not respond. Pool statistics are included for a live *pgxpool.Pool.
func HealthHandler(db Pinger, timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		start := time.Now()
		err := db.Ping(ctx)
		body := DBHealth{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
		if pool, ok := db.(*pgxpool.Pool); ok {
			body.Pool = poolStats(pool.Stat())
		}

		if err != nil {
			body.Status = "unhealthy"
			body.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	}
}
