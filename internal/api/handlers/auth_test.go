package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
	"github.com/edulane/edulane/internal/session"
	"github.com/edulane/edulane/internal/tenantdb"
)

type fakeResolver struct {
	tenants map[string]*core.Tenant
}

func (f *fakeResolver) Resolve(_ context.Context, slug string) (*core.Tenant, error) {
	t, ok := f.tenants[slug]
	if !ok {
		return nil, core.ErrTenantNotFound
	}
	return t, nil
}

type fakeSessionManager struct {
	destroyed []string
}

func (f *fakeSessionManager) Create(_ context.Context, slug, userID, userType string) (string, error) {
	return "tok-" + userID, nil
}

func (f *fakeSessionManager) Destroy(_ context.Context, slug, token string) error {
	f.destroyed = append(f.destroyed, slug+"/"+token)
	return nil
}

func newAuthRouter(t *testing.T, resolver TenantResolver, sessions SessionManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := tenantdb.NewPool(time.Minute, zap.NewNop())
	t.Cleanup(pool.Close)

	h := NewAuthHandler(resolver, sessions, pool, 86400, zap.NewNop())
	r := gin.New()
	r.GET("/login", h.Prompt)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	return r
}

func TestLoginPromptEchoesSlug(t *testing.T) {
	r := newAuthRouter(t, &fakeResolver{}, &fakeSessionManager{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?school_slug=greenwood", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "greenwood") {
		t.Fatalf("prompt body lost the slug: %s", w.Body.String())
	}
}

func TestLoginMissingFields(t *testing.T) {
	r := newAuthRouter(t, &fakeResolver{}, &fakeSessionManager{})

	body := strings.NewReader(`{"school_slug": "greenwood"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLoginUnknownSchool(t *testing.T) {
	r := newAuthRouter(t, &fakeResolver{tenants: map[string]*core.Tenant{}}, &fakeSessionManager{})

	body := strings.NewReader(`{"school_slug": "unknown-school", "email": "a@b.nz", "password": "pw"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "error") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLoginSuspendedSchool(t *testing.T) {
	resolver := &fakeResolver{tenants: map[string]*core.Tenant{
		"riverside": {Slug: "riverside", Status: core.TenantSuspended, DatabaseDescriptor: "postgres://x"},
	}}
	r := newAuthRouter(t, resolver, &fakeSessionManager{})

	body := strings.NewReader(`{"school_slug": "riverside", "email": "a@b.nz", "password": "pw"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestLoginSchoolWithoutDatabase(t *testing.T) {
	// Provisioned tenant whose database descriptor was never set: fail fast,
	// never dial a default database.
	resolver := &fakeResolver{tenants: map[string]*core.Tenant{
		"greenwood": {Slug: "greenwood", Status: core.TenantActive},
	}}
	r := newAuthRouter(t, resolver, &fakeSessionManager{})

	body := strings.NewReader(`{"school_slug": "greenwood", "email": "a@b.nz", "password": "pw"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestLogoutClearsCookieAndRedirects(t *testing.T) {
	sessions := &fakeSessionManager{}
	r := newAuthRouter(t, &fakeResolver{}, sessions)

	req := httptest.NewRequest(http.MethodPost, "/logout?school_slug=greenwood", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok-u1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "school_slug=greenwood") {
		t.Fatalf("redirect location = %q", loc)
	}
	if len(sessions.destroyed) != 1 || sessions.destroyed[0] != "greenwood/tok-u1" {
		t.Fatalf("destroyed = %v", sessions.destroyed)
	}

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("logout did not clear the session cookie")
	}
}
