// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/scoresheet/internal/auth"
	"github.com/jason-s-yu/scoresheet/internal/cache"
	"github.com/jason-s-yu/scoresheet/internal/config"
	"github.com/jason-s-yu/scoresheet/internal/database"
	"github.com/jason-s-yu/scoresheet/internal/handlers"
	"github.com/jason-s-yu/scoresheet/internal/sink"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)

	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		if err := auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.TokenExpire); err != nil {
			logger.Fatalf("auth: %v", err)
		}
		logger.Info("Loaded JWT keys from disk")
	} else {
		if err := auth.Init(cfg.TokenExpire); err != nil {
			logger.Fatalf("auth: %v", err)
		}
		logger.Warn("JWT key paths not set, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gs := handlers.NewGameServer(logger)
	gs.FinishedTTL = cfg.FinishedTTL

	// Redis backs the round queue and paused games. Without it the sheet still works in memory.
	if rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.Warnf("Redis unavailable, persistence and pause disabled: %v", err)
	} else {
		defer rdb.Close()
		store := cache.NewStore(rdb, cfg.QueueName, cfg.SnapshotTTL)
		gs.Sink = sink.New(store, cfg.SinkTimeout, logger)
		gs.Snapshots = store
		logger.Infof("Connected to Redis at %s", cfg.RedisAddr)
	}

	if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
		logger.Warnf("Postgres unavailable, history disabled: %v", err)
	} else {
		defer database.Close()
		gs.History = database.ListCompletedGames
		logger.Infof("Connected to database at %s:%s/%s", cfg.PGHost, cfg.PGPort, cfg.PGDatabase)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(logger, gs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
