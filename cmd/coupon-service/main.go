package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Cheertaboi/coupon-service/internal/api"
	"github.com/Cheertaboi/coupon-service/internal/cache"
	"github.com/Cheertaboi/coupon-service/internal/config"
	"github.com/Cheertaboi/coupon-service/internal/repository"
	"github.com/Cheertaboi/coupon-service/internal/repository/memory"
	"github.com/Cheertaboi/coupon-service/internal/scheduler"
	"github.com/Cheertaboi/coupon-service/internal/service"
	"github.com/Cheertaboi/coupon-service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()

	var store service.CouponStore
	if cfg.Engine.Store == "memory" {
		logger.Warn("using in-memory coupon store; data is lost on restart")
		store = memory.NewStore()
	} else {
		conn, err := db.NewPostgresConnection(cfg.Database)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer conn.Close()
		if err := db.Migrate(ctx, conn); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		logger.Info("postgres ready", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		store = repository.NewStore(conn)
	}

	var couponCache cache.Cache = cache.NewCouponCache(cfg.Redis.CacheTTL)
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		logger.Info("redis cache connected", zap.String("addr", cfg.Redis.Addr))
		couponCache = cache.NewRedisCache(rdb, cfg.Redis.CacheTTL, logger)
	}

	svc := service.NewCouponService(store, couponCache, service.Options{
		RedeemAttempts: cfg.Engine.RedeemAttempts,
		RedeemBackoff:  cfg.Engine.RedeemBackoff,
		Workers:        cfg.Engine.Workers,
	}, logger)

	if spec := cfg.Scheduler.StatusSweepSpec; spec != "off" {
		sched, err := scheduler.New(spec, svc, 30*time.Second, logger)
		if err != nil {
			logger.Fatal("scheduler", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("status sweep scheduled", zap.String("spec", spec))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(svc, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server Shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	logger.Info("starting coupon-service", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	logger.Info("server stopped")
}

func newLogger(cfg config.LogConfig) *zap.Logger {
	var zcfg zap.Config
	if cfg.Env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
