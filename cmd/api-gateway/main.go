package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/station-compliance-api/api/swagger"
	"github.com/noah-isme/station-compliance-api/internal/handler"
	"github.com/noah-isme/station-compliance-api/internal/middleware"
	"github.com/noah-isme/station-compliance-api/internal/models"
	"github.com/noah-isme/station-compliance-api/internal/repository"
	"github.com/noah-isme/station-compliance-api/internal/service"
	"github.com/noah-isme/station-compliance-api/internal/session"
	"github.com/noah-isme/station-compliance-api/pkg/authority"
	"github.com/noah-isme/station-compliance-api/pkg/cache"
	"github.com/noah-isme/station-compliance-api/pkg/config"
	"github.com/noah-isme/station-compliance-api/pkg/database"
	"github.com/noah-isme/station-compliance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/station-compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/station-compliance-api/pkg/middleware/requestid"
)

// @title Station Compliance API
// @version 1.0.0
// @description Statutory document sync and lifecycle engine for fuel stations.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
	cacheNamespace  = "station-compliance"
)

type localDataset interface {
	ListByStation(ctx context.Context, stationID string) ([]models.StatutoryDocument, error)
	StationStatistics(ctx context.Context, stationID string) (models.DocumentStatistics, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logr.Sugar().Warnw("unknown timezone, using UTC", "timezone", cfg.Sync.Timezone, "error", err)
		location = time.UTC
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	cacheSvc, closeCache := newAggregateCache(ctx, cfg, metrics, checks, logr)
	defer closeCache()

	local, closeLocal, err := newLocalDataset(ctx, cfg, metrics, checks)
	if err != nil {
		logr.Sugar().Fatalw("failed to open local dataset", "dataset", cfg.Sync.LocalDataset, "error", err)
	}
	defer closeLocal()

	identity := session.NewProvider(cfg.Authority.ServiceToken)
	client := authority.NewClient(authority.Config{
		BaseURL:        cfg.Authority.BaseURL,
		Timeout:        cfg.Authority.Timeout,
		RetryAttempts:  cfg.Authority.RetryAttempts,
		RetryBaseDelay: cfg.Authority.RetryBaseDelay,
		Tokens:         identity,
		Recorder:       metrics,
		Logger:         logr,
	})
	probe := authority.NewProbe(authority.ProbeConfig{
		BaseURL:         cfg.Authority.BaseURL,
		Timeout:         cfg.Authority.Timeout,
		BreakerFailures: uint32(cfg.Authority.BreakerFailures),
		BreakerCooldown: cfg.Authority.BreakerCooldown,
		Tokens:          identity,
		Recorder:        metrics,
		Logger:          logr,
	})
	gateway := repository.NewStatutoryRemoteRepository(client, cacheSvc, cfg.Cache.TTL, logr)

	calculator := service.NewLifecycleCalculator(nil, location)
	store := service.NewDocumentStore()
	outbox := service.NewOutbox(metrics)
	notifications := service.NewNotificationService(logr)

	reconciler := service.NewReconcileService(outbox, gateway, store, metrics, service.ReconcileConfig{
		Workers:    cfg.Reconcile.Workers,
		MaxRetries: cfg.Reconcile.MaxRetries,
		RetryDelay: cfg.Reconcile.RetryDelay,
		Logger:     logr,
	}, logr)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	syncSvc := service.NewSyncService(service.SyncParams{
		Probe:      probe,
		Gateway:    gateway,
		Local:      local,
		Store:      store,
		Calculator: calculator,
		Outbox:     outbox,
		Reconciler: reconciler,
		Metrics:    metrics,
		Logger:     logr,
		Config: service.SyncConfig{
			DefaultStation:  cfg.Sync.DefaultStation,
			RefreshInterval: cfg.Sync.RefreshInterval,
			DebounceWindow:  cfg.Sync.DebounceWindow,
		},
	})
	go syncSvc.Start(ctx)
	defer syncSvc.Stop()

	commands := service.NewCommandService(service.CommandParams{
		Probe:      probe,
		Gateway:    gateway,
		Local:      local,
		Store:      store,
		Calculator: calculator,
		Outbox:     outbox,
		Notifier:   notifications,
		Identity:   identity,
		Metrics:    metrics,
		Logger:     logr,
	})

	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry)
	statutoryHandler := handler.NewStatutoryHandler(syncSvc, commands, service.NewExportService(location, logr))
	notificationHandler := handler.NewNotificationHandler(notifications)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RequestMetrics(metrics, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	readers := middleware.RBAC(models.RoleStationManager, models.RoleViewer)
	writers := middleware.RBAC(models.RoleStationManager)

	api := r.Group(cfg.APIPrefix, middleware.JWT(tokens))
	api.GET("/metrics/summary", middleware.RBAC(), metricsHandler.Summary)
	api.GET("/notifications", readers, notificationHandler.List)

	statutory := api.Group("/statutory")
	statutory.GET("/stations/:stationId/documents", readers, statutoryHandler.FetchDocuments)
	statutory.PUT("/filters", readers, statutoryHandler.SetFilters)
	statutory.GET("/connection", readers, statutoryHandler.Connection)
	statutory.GET("/errors/last", readers, statutoryHandler.LastError)
	statutory.DELETE("/errors/last", writers, statutoryHandler.ClearError)
	statutory.GET("/documents/export", readers, statutoryHandler.Export)
	statutory.POST("/documents", writers, statutoryHandler.Create)
	statutory.PUT("/documents/:id", writers, statutoryHandler.Update)
	statutory.POST("/documents/:id/renew", writers, statutoryHandler.Renew)
	statutory.DELETE("/documents/:id", writers, statutoryHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "authority", cfg.Authority.BaseURL, "dataset", cfg.Sync.LocalDataset)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server forced to shutdown", "error", err)
	}
	logr.Sugar().Infow("server stopped", "pending_offline_mutations", outbox.Len())
}

// newAggregateCache connects Redis when the aggregate cache is enabled. A Redis outage at
// startup disables caching instead of failing the process.
func newAggregateCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, checks map[string]handler.ReadinessCheck, logr *zap.Logger) (*service.CacheService, func()) {
	if !cfg.Cache.Enabled {
		return nil, func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	client, err := cache.DialAggregateCache(pingCtx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("aggregate cache disabled", "error", err)
		return nil, func() {}
	}
	checks["cache"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	repo := repository.NewCacheRepository(client, cacheNamespace, logr)
	return service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true), func() { _ = repo.Close() }
}

func newLocalDataset(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, checks map[string]handler.ReadinessCheck) (localDataset, func(), error) {
	if cfg.Sync.LocalDataset != config.DatasetPostgres {
		return repository.NewSeedDataset(), func() {}, nil
	}
	openCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	db, err := database.OpenDataset(openCtx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	checks["database"] = db.PingContext
	return repository.NewStatutoryRepository(db, metrics), func() { _ = db.Close() }, nil
}
