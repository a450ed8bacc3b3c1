package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/catalog-admin/internal/cron"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/instance"
	"github.com/angelmondragon/catalog-admin/pkg/lock"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/metrics"
	"github.com/angelmondragon/catalog-admin/pkg/migrate"
	"github.com/angelmondragon/catalog-admin/pkg/outbox"
	"github.com/angelmondragon/catalog-admin/pkg/redis"
	"github.com/angelmondragon/catalog-admin/pkg/storage/driver"
)

const (
	serviceKind  = "cron-worker"
	cronLockName = "cron-worker"
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Instance:    instance.GetID(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWith(ctx, logg, "redis", redisClient.Close)

	opened, err := driver.Open(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("open object storage: %w", err)
	}
	defer closeWith(ctx, logg, "object storage", opened.Close)

	jobs, err := buildJobs(cfg, logg, dbClient, redisClient, opened)
	if err != nil {
		return err
	}

	interval := cfg.Cron.Interval
	cronLock, err := lock.NewRedisLock(redisClient, redisClient.LockKey(cronLockName), lockTTL(interval))
	if err != nil {
		return fmt.Errorf("create cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   jobs,
		Lock:       cronLock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   interval,
		JobTimeout: lockTTL(interval),
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildJobs registers the storage probe refresh and the outbox retention sweep.
func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, opened *driver.Opened) (*cron.Registry, error) {
	prober, err := media.NewProber(opened.Store, metrics.NewUploadMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		return nil, fmt.Errorf("create storage prober: %w", err)
	}
	probeCache, err := media.NewProbeCache(prober, redisClient, cfg.Media.ProbeCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create probe cache: %w", err)
	}
	probeJob, err := cron.NewStorageProbeJob(logg, probeCache)
	if err != nil {
		return nil, fmt.Errorf("create storage probe job: %w", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("create outbox retention job: %w", err)
	}
	return cron.NewRegistry(probeJob, retentionJob)
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}

// lockTTL expires the cycle lock before the next tick.
func lockTTL(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return interval * 4 / 5
}
