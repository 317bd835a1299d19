package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/api/handlers"
	"github.com/edulane/edulane/internal/api/middleware"
	"github.com/edulane/edulane/internal/config"
	"github.com/edulane/edulane/internal/core"
	"github.com/edulane/edulane/internal/dashboard"
	"github.com/edulane/edulane/internal/metrics"
	"github.com/edulane/edulane/internal/session"
	"github.com/edulane/edulane/internal/tenant"
	"github.com/edulane/edulane/internal/tenantdb"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine

	Registry   *tenant.PostgresRegistry
	Locator    *tenant.Locator
	Sessions   *session.Store
	Pool       *tenantdb.Pool
	Aggregator *dashboard.Aggregator
	Collector  *metrics.Collector

	logger *zap.Logger
}

func NewServer(
	cfg *config.Config,
	registry *tenant.PostgresRegistry,
	locator *tenant.Locator,
	sessions *session.Store,
	pool *tenantdb.Pool,
	aggregator *dashboard.Aggregator,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	server := &Server{
		Config:     cfg,
		Router:     router,
		Registry:   registry,
		Locator:    locator,
		Sessions:   sessions,
		Pool:       pool,
		Aggregator: aggregator,
		Collector:  collector,
		logger:     logger,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.Registry, s.Sessions, s.logger)
	s.Router.GET("/health", healthHandler.Check)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth routes
	cookieMaxAge := int(s.Config.Session.TTL.Seconds())
	authHandler := handlers.NewAuthHandler(s.Locator, s.Sessions, s.Pool, cookieMaxAge, s.logger)
	s.Router.GET("/login", authHandler.Prompt)
	s.Router.POST("/login",
		middleware.RateLimit(s.Config.Login.RatePerMinute, s.Config.Login.Burst),
		authHandler.Login,
	)
	s.Router.POST("/logout", authHandler.Logout)

	// School routes (guarded). The chain order is the guard's precedence:
	// tenant existence, then authentication, then authorization.
	dashboardHandler := handlers.NewDashboardHandler(s.Pool, s.Aggregator, s.logger)
	school := s.Router.Group("/s/:school_slug")
	school.Use(
		middleware.ResolveTenant(s.Locator, s.logger),
		middleware.RequireSession(s.Sessions, s.Collector, s.logger),
		middleware.RequireRoles(s.pageRoles()...),
		middleware.RequireActiveTenant(),
	)
	school.GET("/dashboard", dashboardHandler.Show)
}

// pageRoles is the set of roles accepted by the admin console pages.
func (s *Server) pageRoles() []string {
	return []string{core.RoleAdmin, core.RoleSuperAdmin}
}
