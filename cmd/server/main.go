package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"billsplit/internal/app"
	"billsplit/internal/auth"
	"billsplit/internal/config"
	"billsplit/internal/storage"
	"billsplit/pkg/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, cleanup, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return a.Serve(ctx)
}

// setup opens storage and the optional cache and builds the application.
// cleanup releases both.
func setup(ctx context.Context, cfg *config.Config) (*app.App, func(), error) {
	if logging.ParseLevel(cfg.LogLevel) != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.GeneratedSecret {
		slog.Warn("SECRET_KEY is not set; using a random key, sessions will not survive a restart")
	}

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Storage initialized", "database", cfg.DatabaseURL)

	var cache auth.UserCache
	rdb := connectRedis(ctx, cfg.RedisAddr)
	if rdb != nil {
		cache = auth.NewRedisUserCache(rdb)
	}

	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
		db.Close()
	}

	a, err := app.New(cfg, db, cache)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := a.Bootstrap(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

// connectRedis returns a client for addr, or nil when caching is disabled or
// Redis is unreachable.
func connectRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		slog.Info("REDIS_ADDR not set, session cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("Failed to connect to Redis, session cache disabled", "error", err, "addr", addr)
		rdb.Close()
		return nil
	}

	slog.Info("Connected to Redis", "addr", addr)
	return rdb
}
