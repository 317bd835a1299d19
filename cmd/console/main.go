package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/api"
	"github.com/edulane/edulane/internal/config"
	"github.com/edulane/edulane/internal/dashboard"
	"github.com/edulane/edulane/internal/metrics"
	"github.com/edulane/edulane/internal/query"
	"github.com/edulane/edulane/internal/session"
	"github.com/edulane/edulane/internal/tenant"
	"github.com/edulane/edulane/internal/tenantdb"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	// Registry database (tenant directory)
	registryDB, err := tenant.NewConnection(cfg.Registry.URL, cfg.Registry.MaxConnections, cfg.Registry.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to registry database", zap.Error(err))
	}
	defer registryDB.Close()
	registry := tenant.NewPostgresRegistry(registryDB)

	// Redis (session records)
	rdb, err := session.NewClient(cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to configure redis", zap.Error(err))
	}
	defer rdb.Close()

	collector := metrics.NewCollector()

	locator, err := tenant.NewLocator(registry, cfg.TenantCache.MaxEntries, cfg.TenantCache.TTL, collector, logger)
	if err != nil {
		logger.Fatal("Failed to create tenant locator", zap.Error(err))
	}
	defer locator.Close()

	sessions := session.NewStore(rdb, cfg.Session.TTL, logger)

	pool := tenantdb.NewPool(10*time.Minute, logger)
	defer pool.Close()

	runner := query.NewRunner(cfg.Dashboard.QueryTimeout, collector, logger)
	aggregator := dashboard.NewAggregator(runner, cfg.Dashboard.Workers, collector, logger)

	server := api.NewServer(cfg, registry, locator, sessions, pool, aggregator, collector, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Console started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
