package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/cache"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/config"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/event"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/logger"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/telemetry"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/handler"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/middleware"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// Telemetry providers; each degrades to a no-op when disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		level, _ := logger.ParseLevel(cfg.Log.Level)
		if log, err = logger.New(cfg.Log, loggerProvider.ZapCore(level)); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()
	zap.ReplaceGlobals(log)

	log.Info("Starting order reconciliation service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter("order-reconciliation")
	if _, err := telemetry.InstrumentDB(db.DB, cfg.Telemetry, meter, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis-backed idempotency and locking, with in-memory fallback
	backends, err := cache.Open(ctx, cfg.Redis, cfg.Reconciliation, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to open cache backends", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing cache backends", zap.Error(err))
		}
	}()

	// Repositories
	proposalRepo := persistence.NewGormProposalRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	eventRepo := persistence.NewGormOrderEventRepository(db.DB)
	var prices catalog.Catalog = persistence.NewGormCatalogRepository(db.DB)
	if backends.Client != nil {
		prices = cache.NewPriceCache(prices, backends.Client, cfg.Reconciliation.PriceCacheTTL, log)
	}
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Domain events: accepted proposals notify the customer once per event
	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch())
	notifier := event.NewIdempotentHandler("accepted_notification",
		reconciliation.NewAcceptedNotificationHandler(orderRepo, reconciliation.NewLogNotifier(log), log),
		backends.Idempotency,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Reconciliation.IdempotencyTTL, Enabled: true}),
	)
	eventBus.Subscribe(notifier)

	reconMetrics, err := telemetry.NewReconciliationMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create reconciliation metrics", zap.Error(err))
	}

	opts := []reconciliation.ServiceOption{
		reconciliation.WithConfig(reconciliation.Config{
			ConflictRetries:   cfg.Reconciliation.ConflictRetries,
			ExportDestination: cfg.Reconciliation.ExportDestination,
		}),
		reconciliation.WithEventPublisher(eventBus),
		reconciliation.WithMetrics(reconMetrics),
		reconciliation.WithLogger(log),
	}
	if backends.Locker != nil {
		opts = append(opts, reconciliation.WithOrderLocker(backends.Locker))
	}
	service := reconciliation.NewService(proposalRepo, orderRepo, eventRepo, prices, txScope, opts...)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = tracerProvider.IsEnabled()
	if cfg.Telemetry.ServiceName != "" {
		tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	engine, err := router.NewEngine(router.EngineConfig{
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Tracing:        tracingCfg,
		Meter:          meter,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if backends.Client != nil {
		checks["redis"] = func(ctx context.Context) error {
			return backends.Client.Ping(ctx).Err()
		}
	}

	router.NewRouter(engine, router.WithAPIMiddleware(middleware.Actor(middleware.DefaultActorConfig()))).
		RegisterRoot(handler.NewSystemHandler(version, checks)).
		Register(handler.NewProposalHandler(service)).
		Register(handler.NewOrderHandler(service)).
		Setup()

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
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
