package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/catalog-admin/internal/media/consumer"
	"github.com/angelmondragon/catalog-admin/internal/products"
	"github.com/angelmondragon/catalog-admin/pkg/config"
	"github.com/angelmondragon/catalog-admin/pkg/db"
	"github.com/angelmondragon/catalog-admin/pkg/instance"
	"github.com/angelmondragon/catalog-admin/pkg/logger"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/idempotency"
	"github.com/angelmondragon/catalog-admin/pkg/outbox/registry"
	"github.com/angelmondragon/catalog-admin/pkg/pubsub"
	"github.com/angelmondragon/catalog-admin/pkg/redis"
	"github.com/angelmondragon/catalog-admin/pkg/storage/driver"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "media-cleanup-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "media-cleanup-worker"

	logg = logger.New(logger.Options{
		ServiceName: "media-cleanup-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Instance:    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	opened, err := driver.Open(ctx, cfg, logg)
	requireResource(ctx, logg, "object storage", err)
	defer opened.Close()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	cleanup, err := consumer.NewCleanupConsumer(consumer.Params{
		Subscription: pubsubClient.CatalogSubscription(),
		Decoders:     registry.DecoderRegistryFor(eventRegistry),
		Idempotency:  guard,
		Store:        opened.Store,
		References:   products.NewRepository(dbClient.DB()),
		Logger:       logg,
	})
	requireResource(ctx, logg, "media cleanup consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind":  cfg.Service.Kind,
		"env":          cfg.App.Env,
		"subscription": cfg.PubSub.CatalogSubscription,
		"bucket":       opened.Store.Bucket(),
	})
	logg.Info(runCtx, "media cleanup worker ready")

	if err := cleanup.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "media cleanup worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "media cleanup worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
