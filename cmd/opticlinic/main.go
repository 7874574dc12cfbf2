package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/opticlinic/opticlinic/internal/app"
	"github.com/opticlinic/opticlinic/internal/observability"
	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/jobs"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	rootCmd := &cobra.Command{
		Use:           "opticlinic",
		Short:         "Optical retail and clinic back-office API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := serveCmd()
	rootCmd.RunE = serve.RunE
	rootCmd.AddCommand(serve, migrateCmd(), backfillCmd(), createUserCmd(), jobsCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Default().Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// runtime is the process state shared by every subcommand.
type runtime struct {
	cfg    *app.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, pool: pool}, nil
}

func (rt *runtime) close() {
	rt.pool.Close()
}

// redisOrNil connects to Redis and degrades to an uncached run when it is
// unreachable or REDIS_ADDR is empty.
func (rt *runtime) redisOrNil(ctx context.Context) *redis.Client {
	client, err := cache.New(ctx, rt.cfg.RedisAddr)
	switch {
	case err != nil:
		rt.logger.Warn("redis unavailable, payments cache disabled", slog.Any("error", err))
	case client == nil:
		rt.logger.Info("REDIS_ADDR empty, payments cache disabled")
	}
	return client
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.InTestMode() {
				slog.Default().Info("test mode detected, skipping runtime startup")
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()
			logger := rt.logger

			if rt.cfg.DBAutoMigrate {
				if _, err := db.Migrate(ctx, rt.pool, logger); err != nil {
					return err
				}
			}

			redisClient := rt.redisOrNil(ctx)
			if redisClient != nil {
				defer func() {
					if err := redisClient.Close(); err != nil {
						logger.Warn("redis close", slog.Any("error", err))
					}
				}()
			}

			metrics := observability.NewMetrics()
			services := app.NewServices(rt.cfg, rt.pool, redisClient, metrics, logger)

			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: rt.cfg.RedisAddr})
			defer func() {
				if err := inspector.Close(); err != nil {
					logger.Warn("inspector close", slog.Any("error", err))
				}
			}()

			router := app.NewRouter(app.HandlersFor(app.RouterParams{
				Logger:     logger,
				Config:     rt.cfg,
				Metrics:    metrics,
				JobHandler: jobs.NewHandler(inspector, logger),
			}, services))

			server := &http.Server{
				Addr:         rt.cfg.AppAddr,
				Handler:      router,
				ReadTimeout:  rt.cfg.AppReadTimeout,
				WriteTimeout: rt.cfg.AppWriteTimeout,
			}

			go func() {
				logger.Info("starting http server", slog.String("addr", rt.cfg.AppAddr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server", slog.Any("error", err))
					stop()
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
