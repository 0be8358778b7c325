package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"squadmarket/internal/config"
	"squadmarket/internal/db"
	"squadmarket/internal/provision"
	"squadmarket/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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
	svc := provision.NewService(st, logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("SQUADMARKET_WORKER_RUN_ONCE")), "true")
	if runOnce {
		for {
			if err := svc.ProcessNext(ctx, cfg.MaxAttempts); err != nil {
				if errors.Is(err, store.ErrNoJob) {
					break
				}
				logger.Error("job processing failed", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("worker run-once completed")
		return
	}

	provision.NewWorker(svc, cfg.PollEvery, cfg.MaxAttempts).Run(ctx)
}
