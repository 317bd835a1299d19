package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newHealthRouter(registry, sessions Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", NewHealthHandler(registry, sessions, zap.NewNop()).Check)
	return r
}

func TestHealthOK(t *testing.T) {
	r := newHealthRouter(&fakePinger{}, &fakePinger{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHealthDoesNotLeakConnectionDetails(t *testing.T) {
	dsnErr := errors.New(`dial tcp: lookup registry-user:secret@pg.internal:5432: no such host`)
	r := newHealthRouter(&fakePinger{err: dsnErr}, &fakePinger{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "pg.internal") || strings.Contains(body, "secret") {
		t.Fatalf("health body leaks connection details: %s", body)
	}
	if !strings.Contains(body, "unreachable") {
		t.Fatalf("body = %s, want generic unreachable marker", body)
	}
}
