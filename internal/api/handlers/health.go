package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	registry Pinger
	sessions Pinger
	logger   *zap.Logger
}

func NewHealthHandler(registry, sessions Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{registry: registry, sessions: sessions, logger: logger}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	registry := "ok"
	sessions := "ok"

	// Ping errors carry connection details (hosts, DSNs); the endpoint is
	// unauthenticated, so only a generic marker goes to the caller.
	if err := h.registry.Ping(ctx); err != nil {
		h.logger.Warn("registry unreachable", zap.Error(err))
		registry = "unreachable"
		status = http.StatusServiceUnavailable
	}
	if err := h.sessions.Ping(ctx); err != nil {
		h.logger.Warn("session store unreachable", zap.Error(err))
		sessions = "unreachable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"registry": registry,
		"sessions": sessions,
	})
}
