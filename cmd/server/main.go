package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	ledgerapp "github.com/restodash/backend/internal/application/cashregister"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/restodash/backend/internal/infrastructure/cache"
	"github.com/restodash/backend/internal/infrastructure/config"
	"github.com/restodash/backend/internal/infrastructure/logger"
	"github.com/restodash/backend/internal/infrastructure/persistence"
	"github.com/restodash/backend/internal/infrastructure/telemetry"
	"github.com/restodash/backend/internal/interfaces/http/handler"
	"github.com/restodash/backend/internal/interfaces/http/middleware"
	"github.com/restodash/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
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

	log.Info("Starting PDV ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database_driver", cfg.Database.Driver),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithSlowQueryThreshold(cfg.Telemetry.DBSlowQueryThresh),
		persistence.WithTracing(cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.IsSQLite() {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
		log.Warn("Running on sqlite: opens always take the direct insert path")
	}
	log.Info("Database connected successfully")

	// Idempotency keys for register opens
	var idempotency shared.IdempotencyStore
	if cfg.Ledger.IdempotencyEnabled {
		idempotency, err = cache.NewIdempotencyStoreFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(!cfg.Ledger.RequireRedis),
		).CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			_ = idempotency.Close()
		}()
	}

	serviceOpts := []ledgerapp.Option{
		ledgerapp.WithLogger(log),
		ledgerapp.WithRegisterCache(cache.NewInMemoryRegisterCache(
			cache.WithTTL(cfg.Ledger.CacheTTL),
			cache.WithCacheLogger(log),
		)),
		ledgerapp.WithTransactionalWrites(cfg.Ledger.TransactionalWrites),
		ledgerapp.WithFetchPolicy(ledgerapp.FetchPolicy{
			Attempts:       cfg.Ledger.FetchAttempts,
			BaseDelay:      cfg.Ledger.FetchBaseDelay,
			EmergencyLimit: cfg.Ledger.EmergencyLimit,
		}),
	}
	if idempotency != nil {
		serviceOpts = append(serviceOpts, ledgerapp.WithIdempotencyStore(idempotency, cfg.Ledger.IdempotencyTTL))
	}
	if meterProvider.IsEnabled() {
		ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
			Meter:  meterProvider.Meter("pdv.ledger"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Ledger metrics disabled", zap.Error(err))
		} else {
			serviceOpts = append(serviceOpts, ledgerapp.WithMetrics(ledgerMetrics))
		}
	}

	ledgerService := ledgerapp.NewLedgerService(
		persistence.NewGormLedgerStore(db.DB),
		persistence.NewGormRestaurantDirectory(db.DB),
		serviceOpts...,
	)

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := idempotency.(handler.Pinger); ok {
		checks["idempotency"] = pinger
	}

	var meters *telemetry.MeterProvider
	if meterProvider.IsEnabled() {
		meters = meterProvider
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tracerProvider.IsEnabled(),
		},
		MeterProvider:  meters,
		CORS:           router.CORSFromOrigins(cfg.HTTP.CORSAllowOrigins),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Health:         handler.NewHealthHandler(cfg.App.Name, telemetry.ServiceVersion, checks, log),
		Registers:      handler.NewCashRegisterHandler(ledgerService, log),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
