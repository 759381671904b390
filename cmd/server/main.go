package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appreconcile "github.com/aisleworks/inventory-sync/internal/application/reconcile"
	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
	"github.com/aisleworks/inventory-sync/internal/infrastructure/config"
	"github.com/aisleworks/inventory-sync/internal/infrastructure/logger"
	"github.com/aisleworks/inventory-sync/internal/infrastructure/recordstore"
	"github.com/aisleworks/inventory-sync/internal/infrastructure/shopify"
	"github.com/aisleworks/inventory-sync/internal/interfaces/http/handler"
	"github.com/aisleworks/inventory-sync/internal/interfaces/http/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Inventory Sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Record store (variant resolution, level persistence, run audit)
	storeCfg := recordstore.Config{
		BaseURL:        cfg.Store.BaseURL,
		ServiceKey:     cfg.Store.ServiceKey,
		TimeoutSeconds: cfg.Store.TimeoutSeconds,
	}
	if err := storeCfg.Validate(); err != nil {
		log.Fatal("Record store configuration invalid", zap.Error(err))
	}
	storeClient := recordstore.NewClient(storeCfg, log)
	gateway := recordstore.NewVariantGateway(storeClient, log)
	tracker := recordstore.NewRunTracker(storeClient, log)

	// Vendor inventory client. Missing credentials are not fatal at boot:
	// the sync endpoint reports them as a configuration error instead,
	// which keeps health and run-lookup endpoints available.
	vendorCfg := shopify.Config{
		StoreDomain:    cfg.Shopify.StoreDomain,
		AccessToken:    cfg.Shopify.AccessToken,
		APIVersion:     cfg.Shopify.APIVersion,
		TimeoutSeconds: cfg.Shopify.TimeoutSeconds,
		MaxAttempts:    cfg.Shopify.MaxAttempts,
	}
	vendorConfigErr := vendorCfg.Validate()
	if vendorConfigErr != nil {
		log.Warn("Vendor API not configured, sync requests will be rejected", zap.Error(vendorConfigErr))
	}
	vendorClient := shopify.NewInventoryClient(vendorCfg, reconcile.DefaultPolicy(), log)

	// Orchestrator
	refreshService := appreconcile.NewRefreshService(gateway, vendorClient, tracker, appreconcile.Options{
		BatchSize:       cfg.Sync.BatchSize,
		InterBatchDelay: cfg.Sync.InterBatchDelay,
	}, log)

	// HTTP handlers
	syncHandler := handler.NewSyncHandler(refreshService, tracker, vendorConfigErr, log)
	systemHandler := handler.NewSystemHandler()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORS(corsConfig))

	engine.GET("/health", systemHandler.Health)

	api := engine.Group("/api/v1")
	api.GET("/system/info", systemHandler.GetSystemInfo)
	api.POST("/inventory/sync", syncHandler.TriggerSync)
	api.GET("/inventory/sync/runs/:id", syncHandler.GetRun)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown. The shutdown window must outlast an in-flight sync
	// run so its Finish update is not cut off.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
