package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	allocationapp "github.com/fieldops/stockledger/internal/application/allocation"
	ledgerapp "github.com/fieldops/stockledger/internal/application/ledger"
	locationapp "github.com/fieldops/stockledger/internal/application/location"
	receiptapp "github.com/fieldops/stockledger/internal/application/receipt"
	"github.com/fieldops/stockledger/internal/infrastructure/cache"
	"github.com/fieldops/stockledger/internal/infrastructure/config"
	"github.com/fieldops/stockledger/internal/infrastructure/event"
	"github.com/fieldops/stockledger/internal/infrastructure/logger"
	"github.com/fieldops/stockledger/internal/infrastructure/persistence"
	"github.com/fieldops/stockledger/internal/infrastructure/scheduler"
	"github.com/fieldops/stockledger/internal/interfaces/http/handler"
	"github.com/fieldops/stockledger/internal/interfaces/http/middleware"
	"github.com/fieldops/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
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
	log.Info("Database connected")

	// Repositories
	movementRepo := persistence.NewGormMovementRepository(db.DB())
	balanceRepo := persistence.NewGormBalanceRepository(db.DB())
	locationRepo := persistence.NewGormLocationRepository(db.DB())
	allocationRepo := persistence.NewGormAllocationRepository(db.DB())
	consumptionRepo := persistence.NewGormConsumptionRepository(db.DB())
	receiptRepo := persistence.NewGormReceiptRepository(db.DB())
	purchaseLineRepo := persistence.NewGormPurchaseLineRepository(db.DB())
	catalogResolver := persistence.NewGormCatalogResolver(db.DB())
	txScope := persistence.NewGormTransactionScope(db.DB())
	allocationTxScope := persistence.NewGormAllocationTransactionScope(db.DB(), log)

	// Job lock for the reconciliation lease. Redis when reachable, otherwise
	// an in-process lease that still protects a single instance.
	var jobLock ledgerapp.JobLock
	redisLock, err := cache.NewRedisJobLock(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-process job lock", zap.Error(err))
		jobLock = cache.NewInMemoryJobLock()
	} else {
		jobLock = redisLock
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Error closing Redis job lock", zap.Error(err))
			}
		}()
	}

	// Application services
	ledgerService := ledgerapp.NewLedgerService(movementRepo, balanceRepo, txScope, log)
	reconciliationService := ledgerapp.NewReconciliationService(movementRepo, ledgerService, jobLock, log)
	locationService := locationapp.NewLocationService(locationRepo, movementRepo, balanceRepo, purchaseLineRepo, log)
	allocationService := allocationapp.NewAllocationService(allocationRepo, consumptionRepo, catalogResolver, allocationTxScope, log)
	receiptService := receiptapp.NewReceiptService(receiptRepo, log)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	ledgerService.SetEventPublisher(eventBus)
	locationService.SetEventPublisher(eventBus)
	allocationService.SetEventPublisher(eventBus)
	allocationTxScope.SetEventPublisher(eventBus)

	// Nightly reconciliation
	if cfg.Reconciliation.Enabled {
		cronHour, cronMinute, err := scheduler.ParseCronSchedule(cfg.Reconciliation.CronSchedule)
		if err != nil {
			log.Fatal("Invalid reconciliation cron schedule", zap.Error(err))
		}
		reconciliationScheduler := scheduler.NewReconciliationScheduler(
			scheduler.ReconciliationSchedulerConfig{
				Enabled:    true,
				CronHour:   cronHour,
				CronMinute: cronMinute,
				JobTimeout: cfg.Reconciliation.JobTimeout,
			},
			reconciliationService,
			log,
		)
		if err := reconciliationScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := reconciliationScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping reconciliation scheduler", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	locationHandler := handler.NewLocationHandler(locationService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.ActorFromToken(&cfg.JWT, log))

	engine.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(ledgerHandler).
		Register(locationHandler).
		Register(allocationHandler).
		Register(receiptHandler).
		Register(reconciliationHandler)
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
