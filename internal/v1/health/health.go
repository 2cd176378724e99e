// Package health exposes the liveness and readiness endpoints, with
// per-dependency component checks on the full report.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const checkTimeout = 2 * time.Second

// Checker probes the optional backing services. Nil fields are simply
// reported as disabled.
type Checker struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
}

type component struct {
	Status string `json:"status"` // ok | error | disabled
	Error  string `json:"error,omitempty"`
}

// Live always succeeds while the process runs.
func (h *Checker) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 503 when a configured dependency is unreachable.
func (h *Checker) Ready(c *gin.Context) {
	components, healthy := h.check(c.Request.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": statusWord(healthy), "components": components})
}

// Full is the human-facing /health report.
func (h *Checker) Full(c *gin.Context) {
	components, healthy := h.check(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":     statusWord(healthy),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func statusWord(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}

func (h *Checker) check(ctx context.Context) (map[string]component, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	components := map[string]component{}
	healthy := true

	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			components["redis"] = component{Status: "error", Error: err.Error()}
			healthy = false
		} else {
			components["redis"] = component{Status: "ok"}
		}
	} else {
		components["redis"] = component{Status: "disabled"}
	}

	if h.Postgres != nil {
		if err := h.Postgres.Ping(ctx); err != nil {
			components["postgres"] = component{Status: "error", Error: err.Error()}
			healthy = false
		} else {
			components["postgres"] = component{Status: "ok"}
		}
	} else {
		components["postgres"] = component{Status: "disabled"}
	}

	return components, healthy
}
