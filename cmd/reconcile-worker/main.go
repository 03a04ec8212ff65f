package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sautihq/sauti-backend/internal/reconcile"
	"github.com/sautihq/sauti-backend/internal/rewards"
	"github.com/sautihq/sauti-backend/internal/rewards/fulfillment"
	"github.com/sautihq/sauti-backend/pkg/config"
	"github.com/sautihq/sauti-backend/pkg/db"
	"github.com/sautihq/sauti-backend/pkg/instance"
	"github.com/sautihq/sauti-backend/pkg/logger"
	"github.com/sautihq/sauti-backend/pkg/metrics"
	"github.com/sautihq/sauti-backend/pkg/migrate"
	"github.com/sautihq/sauti-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconcile-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "reconcile-worker"

	logg = logger.New(logger.Options{
		ServiceName: "reconcile-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	sweeper, err := reconcile.NewSweeper(
		dbClient,
		fulfillment.NewRepository(dbClient.DB()),
		rewards.NewRepository(dbClient.DB()),
		outbox.NewDLQRepository(dbClient.DB()),
		outboxService,
		metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		logg,
		cfg.Reconcile,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile sweeper", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting reconcile worker")

	interval := cfg.Reconcile.PollInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	// Sweep once at boot, then on every tick.
	sweeper.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logg.Info(ctx, "reconcile worker shutting down gracefully")
			return
		case <-ticker.C:
			sweeper.Run(ctx)
		}
	}
}
