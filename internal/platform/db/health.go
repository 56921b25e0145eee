package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const serviceName = "orders-api"

// PoolStats is the connection pool snapshot reported by the health endpoint.
type PoolStats struct {
	Total       int32  `json:"total_conns"`
	Idle        int32  `json:"idle_conns"`
	InUse       int32  `json:"in_use_conns"`
	Max         int32  `json:"max_conns"`
	AcquireWait string `json:"acquire_wait"`
}

// Health is the payload of GET /health/db.
type Health struct {
	Service  string    `json:"service"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Database PoolStats `json:"database"`
}

func statsFrom(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		Total:       s.TotalConns(),
		Idle:        s.IdleConns(),
		InUse:       s.AcquiredConns(),
		Max:         s.MaxConns(),
		AcquireWait: s.AcquireDuration().String(),
	}
}

// healthFor maps a ping result and pool snapshot onto the response payload.
func healthFor(pingErr error, stats PoolStats) Health {
	h := Health{Service: serviceName, Status: "ok", Database: stats}
	if pingErr != nil {
		h.Status = "unavailable"
		h.Error = pingErr.Error()
	}
	return h
}

// HealthHandler reports database connectivity and pool usage. Unreachable
// databases answer 503 so load balancers can pull the instance.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		h := healthFor(pool.Ping(ctx), statsFrom(pool))
		code := http.StatusOK
		if h.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, h)
	}
}
