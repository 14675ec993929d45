// cmd/historian/main.go is an asynchronous historian service that pops round records from the
// Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/scoresheet/internal/cache"
	"github.com/jason-s-yu/scoresheet/internal/config"
	"github.com/jason-s-yu/scoresheet/internal/database"
	"github.com/jason-s-yu/scoresheet/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx, database.DB); err != nil {
		logger.Fatalf("database: %v", err)
	}

	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	hs := historian.New(
		cache.NewStore(rdb, cfg.QueueName, cfg.SnapshotTTL),
		historian.PgWriter{},
		historian.Options{
			BatchSize:  cfg.HistorianBatchSize,
			FlushDelay: cfg.HistorianFlush,
			Inactivity: cfg.GameInactivity,
		},
		logger,
	)

	logger.Infof("scoresheet-historian started, draining %q", cfg.QueueName)
	if err := hs.Run(ctx); err != nil {
		logger.Errorf("historian stopped: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
