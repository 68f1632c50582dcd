package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthcheckTimeout = 2 * time.Second

// ReadinessCheck reports whether a backing store can serve requests
type ReadinessCheck func(ctx context.Context) error

type HealthHandler struct {
	storeReady ReadinessCheck
}

// NewHealthHandler creates a HealthHandler. A nil check always reports ready.
func NewHealthHandler(storeReady ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		storeReady: storeReady,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	if h.storeReady != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthcheckTimeout)
		defer cancel()

		if err := h.storeReady(ctx); err != nil {
			attachError(c, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "database not reachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
