package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pinger Pinger
	height func() uint64
}

// NewHealthHandler takes a nil pinger when the ledger runs without Postgres.
func NewHealthHandler(pinger Pinger, height func() uint64) *HealthHandler {
	return &HealthHandler{pinger: pinger, height: height}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "microlend-ledger",
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	var height uint64
	if h.height != nil {
		height = h.height()
	}
	if h.pinger == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ready",
			"database": "disabled",
			"height":   height,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"database": "error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "ok",
		"height":   height,
	})
}
