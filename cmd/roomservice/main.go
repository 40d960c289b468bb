package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"roomservice/internal/cache"
	"roomservice/internal/config"
	"roomservice/internal/http/handlers"
	applog "roomservice/internal/log"
	"roomservice/internal/repos"
)

func main() {
	cfg := config.Load()

	logger, closeLog, err := applog.Init(cfg.LogMode, cfg.LogFile)
	if err != nil {
		stdlog.Fatalf("[log] %v", err)
	}

	// run returns before the sinks close so its deferred cleanups still log.
	if err := run(cfg, logger); err != nil {
		logger.Error("exit", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
	closeLog()
}

func run(cfg config.Config, logger *zap.Logger) error {
	db, err := repos.OpenDB(cfg.DB, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("open store (%s): %w", cfg.DB.Driver, err)
	}
	defer db.Close()

	// Redis is optional; without it cart reads go straight to the store.
	var products cache.Products
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		rdb, err := cache.Dial(ctx, cfg.RedisAddr)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, product cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer rdb.Close()
			products = cache.NewRedisProducts(rdb, cfg.ProductCacheTTL, logger.Named("cache"))
		}
	}

	deps := handlers.NewDeps(db, products, logger)
	app := handlers.NewApp(deps, handlers.AppConfig{RateLimit: 60, LoginLimit: 5, AccessLog: true})

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
