package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Hugoguevara91/eagl-backend/internal/blob"
	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
	_ "github.com/Hugoguevara91/eagl-backend/internal/bulk/entities" // register entity types
	"github.com/Hugoguevara91/eagl-backend/internal/config"
	"github.com/Hugoguevara91/eagl-backend/internal/logging"
	"github.com/Hugoguevara91/eagl-backend/internal/store"
	"github.com/Hugoguevara91/eagl-backend/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"chunk_size", cfg.Bulk.ChunkSize,
		"max_file_size", cfg.Bulk.MaxFileSize,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	blobs, err := blob.NewLocal(cfg.Bulk.StorageDir, cfg.Bulk.PublicBaseURL)
	if err != nil {
		slog.Error("failed to open blob storage", "error", err)
		os.Exit(1)
	}

	st := store.New(pool)
	service := bulk.NewService(st, st, blobs, bulk.Options{
		ChunkSize:       cfg.Bulk.ChunkSize,
		PreviewRows:     cfg.Bulk.PreviewRows,
		MaxFileSize:     cfg.Bulk.MaxFileSize,
		ExportSyncLimit: cfg.Bulk.ExportSyncLimit,
	})

	slog.Info("entity types registered", "count", len(bulk.Entities()), "entities", bulk.Entities())

	server := web.NewServer(service, cfg.Server, cfg.Bulk.StorageDir)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
