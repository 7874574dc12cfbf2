package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opticlinic/opticlinic/internal/app"
	jobmetrics "github.com/opticlinic/opticlinic/internal/jobs"
	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err == nil && redisClient == nil {
		err = errors.New("REDIS_ADDR is required by the worker")
	}
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	services := app.NewServices(cfg, pool, redisClient, nil, logger)
	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)

	integrity := jobs.NewLedgerIntegrityJob(services.Accounting, logger, metrics)
	overdue := jobs.NewInvoiceOverdueJob(services.Billing, logger, metrics)

	cron := jobs.DefaultCron()
	for i := range cron {
		cron[i].Options = append(cron[i].Options, asynq.MaxRetry(3))
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrity.Handle},
			{Type: jobs.TaskInvoicesMarkOverdue, Handler: overdue.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		if err := jobs.WatchCacheVersions(ctx, services.PaymentsCache, logger, metrics); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("payments cache watch stopped", slog.Any("error", err))
		}
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
