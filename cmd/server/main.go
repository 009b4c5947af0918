package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	cashapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/cashcustody"
	eventapp "github.com/eduard0708/exits-saas-lms-sub008/internal/application/event"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/auth"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/cache"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/config"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/event"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/logger"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/persistence"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/report"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/storage"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/telemetry"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/handler"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/middleware"
	"github.com/eduard0708/exits-saas-lms-sub008/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	_ "github.com/eduard0708/exits-saas-lms-sub008/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Collector Cash Custody API
//	@version		1.0
//	@description	Daily cash custody and reconciliation ledger for field collectors of the money-loan product.

//	@contact.name	API Support
//	@contact.url	https://github.com/eduard0708/exits-saas-lms-sub008

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const ledgerSnapshotInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = logger.Attach(log, tel.LogCore(logger.ParseLevel(cfg.Log.Level)))
	meter := tel.Meter(cfg.Telemetry.ServiceName)

	log.Info("Starting cash custody service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.CashCustody.Timezone),
	)

	db, err := persistence.NewDatabase(ctx, &cfg.Database,
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	if err := telemetry.InstrumentDB(db.DB, meter, telemetry.DBConfig{
		Tracing:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		FullSQL:       cfg.Telemetry.DBLogFullSQL,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Warn("Database instrumentation disabled", zap.Error(err))
	}
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	// Redis backs rate limiting, token revocation, handler idempotency and
	// the display name cache. Without it the ledger still runs.
	rdb, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, running without rate limiting and token revocation", zap.Error(err))
		rdb = nil
	} else {
		defer func() { _ = rdb.Close() }()
	}

	calendar := cashcustody.NewBusinessCalendar(cfg.CashCustody.Location(), time.Now)
	renderer := report.NewCashReportRenderer(cfg.CashCustody.Location())

	// Ledger
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	outboxPublisher := event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries)

	scope := persistence.NewGormLedgerScope(db.DB, outboxPublisher, cfg.CashCustody.LockTimeout)
	balanceRepo := persistence.NewGormCashBalanceRepository(db.DB)
	floatRepo := persistence.NewGormCashFloatRepository(db.DB)
	transactionRepo := persistence.NewGormCashTransactionRepository(db.DB)
	actionLogRepo := persistence.NewGormActionLogRepository(db.DB)
	limitsRepo := persistence.NewGormCollectorLimitsRepository(db.DB)
	loanDirectory := persistence.NewGormLoanDirectory(db.DB)

	var collectors cashcustody.CollectorDirectory = persistence.NewGormCollectorDirectory(db.DB)
	if rdb != nil {
		collectors = cache.NewCachedCollectorDirectory(collectors, rdb, cfg.CashCustody.DisplayNameCacheTTL, log)
	}

	actionLogService := cashapp.NewActionLogService(actionLogRepo, log)
	limitsService := cashapp.NewLimitsService(limitsRepo, actionLogRepo, loanDirectory, transactionRepo, calendar, log)

	retry := cashapp.DefaultRetryPolicy(persistence.IsContentionError)
	retry.MaxAttempts = cfg.CashCustody.MaxLockAttempts
	retry.BaseDelay = cfg.CashCustody.RetryBaseDelay

	ledgerService := cashapp.NewCashCustodyService(scope, balanceRepo, floatRepo, transactionRepo, limitsService, calendar, log)
	ledgerService.SetRetryPolicy(retry)
	ledgerService.SetDefaultDailyCap(cfg.CashCustody.DefaultCap())
	ledgerService.SetActionLogService(actionLogService)
	ledgerService.SetLoanDirectory(loanDirectory)
	ledgerService.SetCollectorDirectory(collectors)
	ledgerService.SetReportRenderer(renderer)

	// Event delivery
	var idempotency shared.IdempotencyStore
	if rdb != nil {
		idempotency = cache.NewRedisIdempotencyStore(rdb)
	} else {
		idempotency = cache.NewMemoryIdempotencyStore()
	}

	eventBus := event.NewInMemoryEventBus(log)

	ledgerMetrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:     meter,
		Logger:    log,
		Snapshots: telemetry.NewGormLedgerSnapshotProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}
	if tel.MetricsEnabled() {
		ledgerMetrics.StartPeriodicCollection(ctx, calendar.Today, ledgerSnapshotInterval)
		defer ledgerMetrics.Stop()
	}
	subscribe(eventBus, "ledger_metrics", cashapp.NewLedgerMetricsProjector(ledgerMetrics, log), idempotency, log)

	if cfg.CashCustody.ArchiveStatements {
		statements, err := storage.NewS3StatementStore(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
		)
		if err != nil {
			log.Fatal("Failed to initialize statement storage", zap.Error(err))
		}
		if err := statements.EnsureBucket(ctx); err != nil {
			log.Warn("Statement bucket check failed", zap.String("bucket", statements.GetBucket()), zap.Error(err))
		}
		archiver := cashapp.NewHandoverStatementArchiver(ledgerService, renderer, statements, log)
		subscribe(eventBus, "handover_statement_archiver", archiver, idempotency, log)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.StaleAfter = cfg.Event.StaleAfter
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention

		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	engine := newEngine(cfg, log, meter, rdb)

	// Routes
	jwtService := auth.NewJWTService(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Logger = log
	if rdb != nil {
		jwtCfg.Revocations = auth.NewRedisRevocationList(rdb)
	}
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtCfg)

	healthChecks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if rdb != nil {
		healthChecks = append(healthChecks, handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	systemHandler := handler.NewSystemHandler(version, healthChecks...)

	moneyLoan := router.NewMoneyLoanGroup(router.MoneyLoanHandlers{
		Cash:   handler.NewCashCustodyHandler(ledgerService),
		Limits: handler.NewCollectorLimitsHandler(limitsService, actionLogService),
		Outbox: handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)),
	})
	moneyLoan.Use(jwtAuth)

	router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithLogger(log)).
		Register(router.NewSystemGroup(systemHandler)).
		Register(moneyLoan).
		Setup()

	engine.GET("/health", systemHandler.Health)

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.Swagger, jwtAuth),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to flush telemetry", zap.Error(err))
	}

	log.Info("Server exited")
}

// subscribe registers handler on the bus behind an idempotency guard so a
// redelivered outbox entry is applied once.
func subscribe(bus *event.InMemoryEventBus, name string, h shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger) {
	guarded := event.NewIdempotentHandler(name, h, store, log)
	bus.Subscribe(guarded, guarded.EventTypes()...)
}

// newEngine builds the gin engine with the global middleware chain
func newEngine(cfg *config.Config, log *zap.Logger, meter metric.Meter, rdb *redis.Client) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Invalid trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
		engine.Use(middleware.SpanAttributes())
	}
	engine.Use(logger.GinMiddleware(log, "/health", "/api/v1/system/ping"))
	if metrics, err := middleware.HTTPMetrics(meter); err != nil {
		log.Warn("HTTP metrics disabled", zap.Error(err))
	} else {
		engine.Use(metrics)
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled && rdb != nil {
		limiter := middleware.NewRateLimiter(rdb, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, log)
		engine.Use(middleware.RateLimit(limiter))
	}

	return engine
}
