package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/GalitskyKK/kirakira-sub003/internal/bootstrap"
	"github.com/GalitskyKK/kirakira-sub003/internal/config"
	"github.com/GalitskyKK/kirakira-sub003/internal/server"
	"github.com/GalitskyKK/kirakira-sub003/pkg/database"
	"github.com/GalitskyKK/kirakira-sub003/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl := logger.New(logger.Options{Level: cfg.LogLevel, Path: cfg.LogPath})
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Error("server exited with error", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Options{
		DSN:          cfg.DSN(),
		Debug:        cfg.LogLevel == "debug",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}, zl)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		return err
	}
	if cfg.AppEnv == "development" {
		if _, err := bootstrap.SeedAdminUser(ctx, db, zl); err != nil {
			return err
		}
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL, zl)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	srv, err := server.NewServer(cfg, db, redisClient, zl)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
