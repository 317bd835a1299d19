package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
	"github.com/edulane/edulane/internal/session"
)

// Context keys set by the guard chain.
const (
	tenantKey  = "tenant"
	sessionKey = "session"
	slugKey    = "school_slug"
)

// TenantResolver is satisfied by *tenant.Locator.
type TenantResolver interface {
	Resolve(ctx context.Context, slug string) (*core.Tenant, error)
}

// SessionLoader is satisfied by *session.Store.
type SessionLoader interface {
	Load(ctx context.Context, slug, token string) (*core.SessionIdentity, error)
	Touch(ctx context.Context, slug, token string) error
}

// SessionStats is reported to the operational metrics collector.
type SessionStats interface {
	SessionLoad(outcome string)
}

// The guard runs as three chained middlewares in fixed precedence: tenant
// existence, then authentication, then authorization. Failing a later check
// never masks an earlier one, so unknown slugs always answer the same way
// whether or not the caller is logged in.

// ResolveTenant resolves the :school_slug path parameter to exactly one
// tenant. There is no fallback tenant and session-cached tenant data is
// never trusted over the locator.
func ResolveTenant(resolver TenantResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param(slugKey)
		if slug == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "School identifier missing"})
			return
		}

		t, err := resolver.Resolve(c.Request.Context(), slug)
		switch {
		case errors.Is(err, core.ErrInvalidSlug):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "School identifier invalid"})
			return
		case errors.Is(err, core.ErrTenantNotFound):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "School not found"})
			return
		case err != nil:
			logger.Error("tenant resolution failed", zap.String("school_slug", slug), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "School lookup failed"})
			return
		}

		c.Set(slugKey, slug)
		c.Set(tenantKey, t)
		c.Next()
	}
}

// RequireSession loads the caller's session for the resolved school. A
// missing, expired, or cross-school session redirects to login with the slug
// preserved; the caller never ends up "logged in as the wrong school".
func RequireSession(loader SessionLoader, stats SessionStats, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := TenantFromContext(c)

		token, _ := c.Cookie(session.CookieName)
		identity, err := loader.Load(c.Request.Context(), t.Slug, token)
		if err != nil {
			if !errors.Is(err, core.ErrNoSession) {
				// Store outage: we cannot authenticate, so treat as absent.
				logger.Warn("session store unavailable", zap.String("school_slug", t.Slug), zap.Error(err))
			}
			if stats != nil {
				stats.SessionLoad("absent")
			}
			redirectToLogin(c, t.Slug)
			return
		}
		if stats != nil {
			stats.SessionLoad("ok")
		}

		// Touch-on-access; failure just leaves the old expiry in place.
		if err := loader.Touch(c.Request.Context(), t.Slug, token); err != nil {
			logger.Warn("session touch failed", zap.String("school_slug", t.Slug), zap.Error(err))
		}

		c.Set(sessionKey, *identity)
		c.Next()
	}
}

// RequireRoles blocks sessions whose role is not in the page's accepted set.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := SessionFromContext(c)
		if !ok {
			redirectToLogin(c, c.Param(slugKey))
			return
		}
		if !s.HasRole(roles...) {
			c.String(http.StatusForbidden, "Access denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireActiveTenant rejects suspended schools. It runs after authorization
// so suspension status is only disclosed to authenticated staff.
func RequireActiveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if TenantFromContext(c).Suspended() {
			c.String(http.StatusForbidden, "School account suspended")
			c.Abort()
			return
		}
		c.Next()
	}
}

func redirectToLogin(c *gin.Context, slug string) {
	c.Redirect(http.StatusFound, "/login?school_slug="+url.QueryEscape(slug))
	c.Abort()
}

// TenantFromContext returns the tenant resolved by ResolveTenant. Only valid
// behind the guard chain.
func TenantFromContext(c *gin.Context) *core.Tenant {
	return c.MustGet(tenantKey).(*core.Tenant)
}

// SessionFromContext returns the authenticated identity, if any.
func SessionFromContext(c *gin.Context) (core.SessionIdentity, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return core.SessionIdentity{}, false
	}
	return v.(core.SessionIdentity), true
}
