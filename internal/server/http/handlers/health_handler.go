package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports whether the operator API can reach its storage.
type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if err := h.checker.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
