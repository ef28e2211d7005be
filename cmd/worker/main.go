package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loangraph/microlend/internal/config"
	"github.com/loangraph/microlend/internal/db"
	"github.com/loangraph/microlend/internal/jobs"
	"github.com/loangraph/microlend/internal/observability"
	"github.com/loangraph/microlend/internal/publisher"
	postgresrepo "github.com/loangraph/microlend/internal/repository/postgres"
)

const stuckAfter = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg, "worker")
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	pub, err := publisher.NewFromConfig(cfg)
	if err != nil {
		logger.Error("failed to build publisher", "err", err)
		os.Exit(1)
	}
	defer func() { _ = pub.Close() }()

	outbox := postgresrepo.NewOutboxRepository(pool)
	if n, err := outbox.Requeue(ctx, stuckAfter); err != nil {
		logger.Error("requeue stuck events failed", "err", err)
	} else if n > 0 {
		logger.Warn("requeued stuck events", "count", n)
	}
	worker := jobs.NewWorker(outbox, pub)

	interval := cfg.WorkerPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "interval", interval.String(), "batch_size", cfg.WorkerBatchSize, "publisher", cfg.PublisherMode)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := worker.RunOnce(runCtx, cfg.WorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker run failed", "err", err)
			}
			if n > 0 {
				logger.Debug("events relayed", "count", n)
			}
		}
	}
}
