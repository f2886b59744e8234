package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	db      Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	database := "up"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, code, database = "unhealthy", http.StatusServiceUnavailable, "down"
		}
	}
	c.JSON(code, gin.H{
		"status":   status,
		"version":  h.version,
		"database": database,
	})
}
