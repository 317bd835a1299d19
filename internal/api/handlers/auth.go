package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edulane/edulane/internal/core"
	"github.com/edulane/edulane/internal/session"
	"github.com/edulane/edulane/internal/tenantdb"
)

// TenantResolver is satisfied by *tenant.Locator.
type TenantResolver interface {
	Resolve(ctx context.Context, slug string) (*core.Tenant, error)
}

// SessionManager is the writable side of the session store.
type SessionManager interface {
	Create(ctx context.Context, slug, userID, userType string) (string, error)
	Destroy(ctx context.Context, slug, token string) error
}

type AuthHandler struct {
	locator  TenantResolver
	sessions SessionManager
	pool     *tenantdb.Pool
	logger   *zap.Logger

	cookieMaxAge int
}

func NewAuthHandler(locator TenantResolver, sessions SessionManager, pool *tenantdb.Pool, cookieMaxAge int, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		locator:      locator,
		sessions:     sessions,
		pool:         pool,
		logger:       logger,
		cookieMaxAge: cookieMaxAge,
	}
}

type LoginRequest struct {
	SchoolSlug string `json:"school_slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
}

type loginUser struct {
	ID           string `db:"id"`
	PasswordHash string `db:"password_hash"`
	Role         string `db:"role"`
}

// Prompt is the redirect target the access guard sends unauthenticated
// requests to. The view layer renders the form; we just echo the slug back.
func (h *AuthHandler) Prompt(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"login":       "POST /login",
		"school_slug": c.Query("school_slug"),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "school_slug, email and password are required"})
		return
	}

	t, err := h.locator.Resolve(c.Request.Context(), req.SchoolSlug)
	switch {
	case errors.Is(err, core.ErrInvalidSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": "School identifier invalid"})
		return
	case errors.Is(err, core.ErrTenantNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "School not found"})
		return
	case err != nil:
		h.logger.Error("tenant resolution failed", zap.String("school_slug", req.SchoolSlug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "School lookup failed"})
		return
	}

	if t.Suspended() {
		c.String(http.StatusForbidden, "School account suspended")
		return
	}

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

	var user loginUser
	err = conn.GetContext(c.Request.Context(), &user, `
        SELECT id, password_hash, role
        FROM users
        WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		conn.TenantID(), req.Email,
	)
	if err != nil {
		// Unknown email, missing users table, and query failures all answer
		// the same way; login never discloses which.
		if !errors.Is(err, sql.ErrNoRows) {
			h.logger.Warn("login lookup failed", zap.String("school_slug", t.Slug), zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), t.Slug, user.ID, user.Role)
	if err != nil {
		h.logger.Error("session create failed", zap.String("school_slug", t.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start session"})
		return
	}

	c.SetCookie(session.CookieName, token, h.cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"school_slug": t.Slug,
		"redirect":    "/s/" + t.Slug + "/dashboard",
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	slug := c.Query("school_slug")

	if token, err := c.Cookie(session.CookieName); err == nil && token != "" && slug != "" {
		if err := h.sessions.Destroy(c.Request.Context(), slug, token); err != nil {
			h.logger.Warn("session destroy failed", zap.String("school_slug", slug), zap.Error(err))
		}
	}

	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login?school_slug="+url.QueryEscape(slug))
}
