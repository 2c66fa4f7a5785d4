package main

import (
	"context"
	"net/http"
	"os"

	"github.com/angelmondragon/filedrop-backend/api/controllers"
	"github.com/angelmondragon/filedrop-backend/api/middleware"
	"github.com/angelmondragon/filedrop-backend/api/routes"
	"github.com/angelmondragon/filedrop-backend/internal/uploads"
	"github.com/angelmondragon/filedrop-backend/internal/uploads/resumable"
	"github.com/angelmondragon/filedrop-backend/pkg/config"
	"github.com/angelmondragon/filedrop-backend/pkg/db"
	"github.com/angelmondragon/filedrop-backend/pkg/logger"
	"github.com/angelmondragon/filedrop-backend/pkg/migrate"
	"github.com/angelmondragon/filedrop-backend/pkg/outbox"
	"github.com/angelmondragon/filedrop-backend/pkg/redis"
	"github.com/angelmondragon/filedrop-backend/pkg/storage"
	"github.com/joho/godotenv"
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

	provider, err := storage.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	uploadService, err := uploads.NewService(
		uploads.NewRepository(dbClient.DB()),
		dbClient,
		provider,
		outboxService,
		cfg.Secret,
		cfg.Upload,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	resumableHandler, err := resumable.NewHandler(
		uploadService,
		provider,
		redisClient,
		logg,
		middleware.AuthenticatedUserID,
		cfg.Upload.PatchLockTTL,
		cfg.Upload.MaxChunkBytes,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create resumable handler", err)
		os.Exit(1)
	}

	deps := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"storage":  provider,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"storage":  provider.Kind(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, deps, uploadService, resumableHandler),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
