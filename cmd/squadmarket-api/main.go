package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"squadmarket/internal/api"
	"squadmarket/internal/auth"
	"squadmarket/internal/config"
	"squadmarket/internal/db"
	"squadmarket/internal/market"
	"squadmarket/internal/provision"
	"squadmarket/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.EnsureSchema {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}
	}

	st := store.New(pool)
	authSvc := auth.NewService(st, cfg.JWTSecret, cfg.TokenTTL, logger)
	marketSvc := market.NewService(st, logger)
	provisionSvc := provision.NewService(st, logger)

	server := api.New(logger, authSvc, marketSvc, provisionSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("squadmarket api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
