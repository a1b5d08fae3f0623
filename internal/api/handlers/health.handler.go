package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/pkg/cache"
	"github.com/hireloop/platform-core/pkg/logger"
)

type HealthHandler struct {
	store   cache.ValkeyStore
	logger  logger.Logger
	started time.Time
}

func NewHealthHandler(store cache.ValkeyStore, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		logger:  log,
		started: time.Now(),
	}
}

// HealthCheck reports liveness. Always 200 while the process serves.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(h.started).String(),
	})
}

// ReadinessCheck reports whether dependencies are reachable. The store is
// the only hard dependency of the core.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.store.HealthCheck(c.Request.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"store":  "unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"store":  "ok",
	})
}
