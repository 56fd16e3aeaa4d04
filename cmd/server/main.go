package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/xdido2/finance-tracker-backend/internal/blob"
	"github.com/xdido2/finance-tracker-backend/internal/config"
	"github.com/xdido2/finance-tracker-backend/internal/db"
	"github.com/xdido2/finance-tracker-backend/internal/server"
	"github.com/xdido2/finance-tracker-backend/pkg/logging"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	logging.Setup()
	cfg := config.Load()

	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(cfg); err != nil {
			slog.Error("migrate-only failed", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.ConnectAndMigrate(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	var blobs blob.Store
	if cfg.S3Bucket != "" {
		s3Store, err := blob.NewS3Store(context.Background(), blob.S3Config{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PresignTTL: cfg.PresignTTL,
		})
		if err != nil {
			slog.Error("blob storage init failed", "error", err)
			os.Exit(1)
		}
		blobs = s3Store
	} else {
		slog.Warn("AWS_S3_BUCKET not set, receipt image storage disabled")
	}

	slog.Info("starting server", "env", cfg.Env, "port", cfg.Port)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: server.New(dbConn, cfg, blobs)}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	if sqlDB, err := dbConn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	slog.Info("server gracefully stopped")
}
