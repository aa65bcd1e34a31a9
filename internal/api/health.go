package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger checks connectivity to a dependency.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	service string
	version string
	db      Pinger
	started time.Time
}

// NewHealthHandler creates a health handler checking the given database.
func NewHealthHandler(service, version string, db Pinger) *HealthHandler {
	return &HealthHandler{
		service: service,
		version: version,
		db:      db,
		started: time.Now(),
	}
}

// Health handles GET /health. The service is healthy only when the
// warehouse database answers a ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if pingErr := h.db.PingContext(ctx); pingErr != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = pingErr.Error()
	}

	c.JSON(status, gin.H{
		"status":  statusLabel(status),
		"service": h.service,
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"checks":  checks,
	})
}

func statusLabel(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}

	return "unhealthy"
}
