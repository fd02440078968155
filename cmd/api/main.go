package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wedshare/wedshare-backend/api/routes"
	"github.com/wedshare/wedshare-backend/internal/catalog"
	"github.com/wedshare/wedshare-backend/internal/upload"
	"github.com/wedshare/wedshare-backend/pkg/config"
	"github.com/wedshare/wedshare-backend/pkg/logger"
	"github.com/wedshare/wedshare-backend/pkg/metrics"
	"github.com/wedshare/wedshare-backend/pkg/storage/drive"
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

	driveClient, err := drive.NewClient(context.Background(), cfg.Drive, cfg.Google, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap drive client", err)
		os.Exit(1)
	}

	staging, err := upload.NewStaging(cfg.Upload.StagingDir)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare staging directory", err)
		os.Exit(1)
	}

	uploadMetrics := metrics.NewUploadMetrics(prometheus.DefaultRegisterer)

	uploadService, err := upload.NewService(staging, driveClient, driveClient.FolderID(), cfg.Upload.MaxVideoBytes(), logg, uploadMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(driveClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, driveClient, uploadService, catalogService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
