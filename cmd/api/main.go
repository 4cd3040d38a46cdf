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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/artmarket/artmarket-backend/api/controllers"
	"github.com/artmarket/artmarket-backend/api/routes"
	"github.com/artmarket/artmarket-backend/internal/cart"
	"github.com/artmarket/artmarket-backend/internal/checkout"
	"github.com/artmarket/artmarket-backend/pkg/config"
	"github.com/artmarket/artmarket-backend/pkg/db"
	"github.com/artmarket/artmarket-backend/pkg/enums"
	"github.com/artmarket/artmarket-backend/pkg/env"
	"github.com/artmarket/artmarket-backend/pkg/instance"
	"github.com/artmarket/artmarket-backend/pkg/logger"
	"github.com/artmarket/artmarket-backend/pkg/metrics"
	"github.com/artmarket/artmarket-backend/pkg/migrate"
	"github.com/artmarket/artmarket-backend/pkg/redis"
	"github.com/artmarket/artmarket-backend/pkg/storage"
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
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		readiness["redis"] = redisClient
	}

	backend, err := storage.Open(storage.Options{
		Driver: cfg.Cart.Driver(),
		DB:     dbClient.DB(),
		Redis:  redisClient,
		TTL:    cfg.Cart.StorageTTL,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, backend.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions, err := cart.NewSessions(cart.SessionsParams{
		Storage:      backend,
		Logger:       logg,
		Observer:     metrics.NewCartMetrics(registry),
		WriteTimeout: cfg.Cart.WriteTimeout,
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(
		dbClient,
		checkout.NewRepository(dbClient.DB()),
		sessions,
		enums.Currency(cfg.Cart.Currency),
		logg,
	)
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"instance":       instance.GetID(),
		"storage_driver": cfg.Cart.StorageDriver,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			metrics.NewHTTPMetrics(registry),
			readiness,
			sessions,
			checkoutService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := sessions.RunSweeper(ctx, cfg.Cart.SweepInterval, cfg.Cart.IdleTTL); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(logCtx, "cart sweeper stopped", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
