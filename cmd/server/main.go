package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evade6ix/ctfinal-sub000/internal/adapter/handler"
	"github.com/evade6ix/ctfinal-sub000/internal/adapter/marketplace"
	"github.com/evade6ix/ctfinal-sub000/internal/adapter/storage"
	"github.com/evade6ix/ctfinal-sub000/internal/config"
	"github.com/evade6ix/ctfinal-sub000/internal/core/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	stockRepo := storage.NewMySQLStockRepository(db)
	allocRepo := storage.NewMySQLAllocationRepository(db)
	cache := storage.NewRedisAdapter(rdb, cfg.OrderCacheTTL)
	market := marketplace.NewClient(cfg.MarketplaceBaseURL, cfg.MarketplaceToken)

	// Services
	allocSvc := service.NewAllocationService(stockRepo, allocRepo, market, cache, logger)
	stockSvc := service.NewStockService(stockRepo, logger)
	reversalSvc := service.NewReversalService(stockRepo, allocRepo, cache, logger)
	scheduler := service.NewScheduler(market, cache, allocRepo, allocSvc, reversalSvc,
		cfg.EligibleStates, cfg.SyncInterval, cfg.SweepWorkers, logger)

	go scheduler.Run(ctx)
	logger.Info("scheduler started",
		zap.Duration("interval", cfg.SyncInterval),
		zap.Strings("states", cfg.EligibleStates))

	// HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler.NewHTTPHandler(allocSvc, stockSvc, reversalSvc, scheduler, logger).Register(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	cancel() // stops the scheduler

	if err := rdb.Close(); err != nil {
		logger.Warn("redis close error", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		logger.Warn("mysql close error", zap.Error(err))
	}
	logger.Info("stopped")
}
