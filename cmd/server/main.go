package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"breeze-gateway/internal/app"
	"breeze-gateway/internal/config"
	"breeze-gateway/internal/controller"
	"breeze-gateway/internal/logging"
	"breeze-gateway/internal/middleware"
	"breeze-gateway/internal/security"
)

var version = "dev"

// AdminRole may invalidate and publish metadata documents when auth is enabled
const AdminRole = "admin"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.InitMetrics()

	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	go a.Cache.Start(ctx)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPM:             cfg.Security.RateLimitPerMinute,
		Burst:           cfg.Security.RateLimitBurst,
		CleanupInterval: 5 * time.Minute,
	})
	go rateLimiter.Start(ctx)

	router, err := setupRouter(a, rateLimiter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.Strings("services", a.Catalog.Names()),
			zap.Bool("snapshots", a.DB != nil))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRouter(a *app.App, rateLimiter *middleware.RateLimiter) (*gin.Engine, error) {
	cfg := a.Config

	var limiterStats controller.RateLimitStatsProvider
	if cfg.Security.EnableRateLimit {
		limiterStats = rateLimiter
	}

	breezeController := controller.NewBreezeController(a.Metadata)
	metadataController := controller.NewMetadataController(a.Metadata, limiterStats)
	healthController := controller.NewHealthController(a.DB, version)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(middleware.Recovery(a.Logger))
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(a.Logger))
	router.Use(middleware.PrometheusMiddleware())
	router.Use(middleware.Cors())

	if cfg.Security.EnableRateLimit {
		router.Use(rateLimiter.RateLimit())
	}

	// Always available
	router.GET("/health", healthController.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Breeze clients fetch metadata anonymously
	router.GET("/breeze/:service/Metadata", breezeController.GetMetadata)

	api := router.Group("/api/v1")
	var admin []gin.HandlerFunc
	if cfg.Security.EnableAuth {
		authMiddleware := security.NewAuthMiddleware(security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration))
		api.Use(authMiddleware.RequireAuth())
		admin = append(admin, authMiddleware.RequireRole(AdminRole))
	}
	{
		api.GET("/services", metadataController.ListServices)

		metadata := api.Group("/metadata")
		{
			metadata.GET("/stats", metadataController.Stats)
			metadata.POST("/:service/invalidate", append(admin, metadataController.Invalidate)...)
			metadata.POST("/:service/publish", append(admin, metadataController.Publish)...)
		}

		snapshots := api.Group("/snapshots")
		{
			snapshots.GET("", metadataController.ListSnapshots)
			snapshots.GET("/:id", metadataController.GetSnapshot)
		}
	}

	return router, nil
}
