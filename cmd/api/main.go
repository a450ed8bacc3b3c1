package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/catalog-admin/api/routes"
	"github.com/angelmondragon/catalog-admin/internal/adminusers"
	"github.com/angelmondragon/catalog-admin/internal/auth"
	"github.com/angelmondragon/catalog-admin/internal/catalogform"
	"github.com/angelmondragon/catalog-admin/internal/categories"
	"github.com/angelmondragon/catalog-admin/internal/media"
	"github.com/angelmondragon/catalog-admin/internal/products"
	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
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
	productLockTTL  = 2 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Instance:    instance.GetID(),
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	opened, err := driver.Open(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open object storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := opened.Close(); err != nil {
			logg.Error(context.Background(), "error closing object storage", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	uploadMetrics := metrics.NewUploadMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	adminRepo := adminusers.NewRepository(dbClient.DB())
	adminService, err := adminusers.NewService(adminRepo, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Admins:    adminRepo,
		Sessions:  sessionManager,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg, cfg.FeatureFlags.EnableEvents)

	categoryService, err := categories.NewService(categories.NewRepository(dbClient.DB()), dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}
	productService, err := products.NewService(products.NewRepository(dbClient.DB()), dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	uploader, err := media.NewUploader(opened.Store, uploadMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create uploader", err)
		os.Exit(1)
	}
	prober, err := media.NewProber(opened.Store, uploadMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create storage prober", err)
		os.Exit(1)
	}
	probeCache, err := media.NewProbeCache(prober, redisClient, cfg.Media.ProbeCacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create probe cache", err)
		os.Exit(1)
	}
	progress, err := media.NewProgressTracker(redisClient, cfg.Media.ProgressTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create progress tracker", err)
		os.Exit(1)
	}
	productLocks, err := lock.NewLocker(redisClient, redisClient, productLockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create product locker", err)
		os.Exit(1)
	}

	forms, err := catalogform.NewController(catalogform.Params{
		Products:   productService,
		Categories: categoryService,
		Uploader:   uploader,
		Storage:    probeCache,
		Locker:     productLocks,
		Limits:     media.LimitsFromConfig(cfg.Media),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create form controller", err)
		os.Exit(1)
	}

	if cfg.Media.ProbeOnStartup {
		result, err := probeCache.Refresh(context.Background())
		probeCtx := logg.WithFields(context.Background(), map[string]any{"bucket": result.Bucket, "available": result.Available})
		switch {
		case err != nil:
			logg.Error(probeCtx, "failed to cache storage probe", err)
		case !result.Available:
			logg.Warn(logg.WithField(probeCtx, "reason", result.Message), "object storage not ready")
		default:
			logg.Info(probeCtx, "object storage ready")
		}
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Idempotency:  redisClient,
		Sessions:     sessionManager,
		Auth:         authService,
		Admins:       adminService,
		Categories:   categoryService,
		Products:     productService,
		Forms:        forms,
		Progress:     progress,
		Storage:      probeCache,
		Gatherer:     registry,
		MediaHandler: opened.MediaHandler,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"storage":  cfg.FeatureFlags.StorageDriver,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
