package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"retaildw/internal/infrastructure/storage/postgres"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pool    *postgres.Pool
	checks  []namedCheck
	version string
}

// NewHealthHandler creates a health handler. A non-nil pool is checked as
// "database".
func NewHealthHandler(pool *postgres.Pool, version string) *HealthHandler {
	h := &HealthHandler{pool: pool, version: version}
	if pool != nil {
		h.AddCheck("database", pool.Ping)
	}
	return h
}

// AddCheck registers a readiness check.
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles readiness probe.
// GET /health, GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, nc := range h.checks {
		if err := nc.check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[nc.name] = "unhealthy: " + err.Error()
			continue
		}
		checks[nc.name] = "healthy"
	}

	body := gin.H{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "retaildw",
		"version": h.version,
	}
	if h.pool != nil {
		stats := postgres.GetPoolStats(h.pool.Unwrap())
		body["database"] = gin.H{
			"total_conns":    stats.TotalConns,
			"acquired_conns": stats.AcquiredConns,
			"idle_conns":     stats.IdleConns,
			"max_conns":      stats.MaxConns,
		}
	}
	c.JSON(http.StatusOK, body)
}
