package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/api/middleware"
	"github.com/edulane/edulane/internal/core"
	"github.com/edulane/edulane/internal/query"
	"github.com/edulane/edulane/internal/tenantdb"
)

// Builder is satisfied by *dashboard.Aggregator.
type Builder interface {
	Build(ctx context.Context, tenant *core.Tenant, sess core.SessionIdentity, conn query.Conn) *core.ReadModel
}

type DashboardHandler struct {
	pool       *tenantdb.Pool
	aggregator Builder
	logger     *zap.Logger
}

func NewDashboardHandler(pool *tenantdb.Pool, aggregator Builder, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{pool: pool, aggregator: aggregator, logger: logger}
}

// Show serves the dashboard read-model. It runs strictly behind the guard
// chain, so the tenant and session in context are always present and the
// connection is only ever acquired for authorized requests.
func (h *DashboardHandler) Show(c *gin.Context) {
	t := middleware.TenantFromContext(c)
	sess, _ := middleware.SessionFromContext(c)

	conn, err := h.pool.Acquire(c.Request.Context(), t)
	if err != nil {
		if errors.Is(err, core.ErrNoDescriptor) {
			h.logger.Error("tenant has no database descriptor", zap.String("school_slug", t.Slug))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "School database not configured"})
			return
		}
		h.logger.Error("tenant database unavailable", zap.String("school_slug", t.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "School database unavailable"})
		return
	}
	defer conn.Release()

	readModel := h.aggregator.Build(c.Request.Context(), t, sess, conn)
	c.JSON(http.StatusOK, readModel)
}
