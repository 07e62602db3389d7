package main

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"verification-service/backend"
	"verification-service/config"
	"verification-service/events"
	"verification-service/flow"
	"verification-service/handlers"
	"verification-service/logging"
	"verification-service/monitoring"
	"verification-service/store"
	"verification-service/verification"
)

func main() {
	// Initialize structured logging
	if err := logging.InitLogger(); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Load configuration
	cfg := config.Load()

	// Initialize OpenTelemetry
	tp, _, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, _, err := monitoring.InitMeter(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Terminal-outcome cache
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logging.Fatal("Invalid REDIS_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	outcomeCache := store.NewOutcomeCache(redisClient, cfg.OutcomeCacheTTL)

	// Verification outcome events
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error("Error closing event publisher", zap.Error(err))
		}
	}()

	// Backend status-check client and verification flow
	backendClient := backend.NewClient(cfg.BackendAPIURL, cfg.BackendAPIToken)
	poller := verification.NewPoller(backendClient, verification.Options{
		MaxAttempts:       cfg.MaxAttempts,
		InitialDelay:      cfg.InitialDelay,
		MaxDelay:          cfg.MaxDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
	})
	controller := flow.NewController(poller, outcomeCache, publisher)

	// Initialize handlers
	verificationHandler := handlers.NewVerificationHandler(controller, backendClient)

	// Setup Gin router
	r := gin.Default()

	// OpenTelemetry middleware
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMetricsMiddleware())

	// Routes
	r.GET("/health", verificationHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/verify", verificationHandler.StartVerification)
		api.GET("/verify/check", verificationHandler.CheckOnce)
		api.GET("/verify/sessions/:id", verificationHandler.GetSession)
		api.POST("/verify/sessions/:id/cancel-redirect", verificationHandler.CancelRedirect)
		api.POST("/verify/sessions/:id/navigate", verificationHandler.Navigate)
		api.DELETE("/verify/sessions/:id", verificationHandler.AbortSession)
		api.POST("/callbacks/:gateway", verificationHandler.RelayCallback)
	}

	// Start server
	logging.Info("Verification service starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Fatal("Failed to start server", zap.Error(err))
	}
}

// httpMetricsMiddleware records HTTP request metrics
func httpMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Record duration
		duration := float64(time.Since(start).Milliseconds())

		monitoring.HTTPServerDuration.Record(c.Request.Context(), duration,
			metric.WithAttributes(
				attribute.String("http_method", c.Request.Method),
				attribute.String("http_route", c.FullPath()),
				attribute.String("http_status_code", strconv.Itoa(c.Writer.Status())),
			),
		)
	}
}
