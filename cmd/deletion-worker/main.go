package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	"github.com/angelmondragon/filedrop-backend/internal/uploads/consumer"
	"github.com/angelmondragon/filedrop-backend/pkg/config"
	"github.com/angelmondragon/filedrop-backend/pkg/db"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
	"github.com/angelmondragon/filedrop-backend/pkg/metrics"
	"github.com/angelmondragon/filedrop-backend/pkg/pubsub"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "deletion-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "deletion-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	provider, err := storage.New(context.Background(), cfg.Storage, logg)
	requireResource(ctx, logg, "storage", err)

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	workerMetrics := metrics.NewWorkerMetrics(prometheus.DefaultRegisterer)
	deletionConsumer, err := consumer.NewDeletionConsumer(
		uploads.NewRepository(dbClient.DB()),
		provider,
		pubsubClient.DeletionSubscription(),
		logg,
		workerMetrics,
	)
	requireResource(ctx, logg, "deletion consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": "deletion-worker",
		"env":         cfg.App.Env,
		"storage":     provider.Kind(),
	})
	logg.Info(runCtx, "deletion worker ready")

	if err := deletionConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "deletion worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
