package router

import (
	"github.com/gin-gonic/gin"
	"github.com/restodash/backend/internal/infrastructure/logger"
	"github.com/restodash/backend/internal/infrastructure/telemetry"
	"github.com/restodash/backend/internal/interfaces/http/handler"
	"github.com/restodash/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// DefaultMaxBodySize caps request bodies when the config leaves it unset
const DefaultMaxBodySize int64 = 1 << 20

// EngineConfig holds everything the HTTP engine is assembled from
type EngineConfig struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	MeterProvider  *telemetry.MeterProvider
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string

	Health    *handler.HealthHandler
	Registers *handler.CashRegisterHandler
}

// NewEngine builds the gin engine with the middleware chain and every route.
// Middleware order: request ID first so every later log line and span carries
// it; restaurant scope before the span enricher and metrics that label by it.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	scope := middleware.DefaultRestaurantScopeConfig()
	scope.Logger = log

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(maxBody),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.RestaurantScope(scope),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: cfg.MeterProvider,
			Enabled:       cfg.MeterProvider != nil,
			Logger:        log,
		}),
	)

	if cfg.Health != nil {
		engine.GET("/health", cfg.Health.Live)
		engine.GET("/health/ready", cfg.Health.Ready)
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	if cfg.Registers != nil {
		r.Register(CashRegisterRoutes(cfg.Registers))
	}
	r.Setup()

	return engine, nil
}

// CORSFromOrigins builds the CORS config of the API from the allowed origins
func CORSFromOrigins(origins []string) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = origins
	return cors
}
