package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/tcgen/internal/app"
	"github.com/JonMunkholm/tcgen/internal/config"
	"github.com/JonMunkholm/tcgen/internal/logging"
	"github.com/JonMunkholm/tcgen/internal/web"
	"github.com/joho/godotenv"
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
		"output_dir", cfg.Render.OutputDir,
		"batch_workers", cfg.Batch.Workers,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	slog.Info("record store ready", "batch_dir", a.Service.BatchDir())

	server := web.NewServer(a.Service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Cancelling batch jobs first lets their progress streams finish.
		imports := a.Service.ImportLimiter().Status()
		jobs := a.Service.JobLimiter().Status()
		if imports.Active > 0 || jobs.Active > 0 {
			slog.Info("waiting for work to complete", "imports", imports.Active, "batches", jobs.Active)
		}
		if err := a.Service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("work did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := a.Store.Close(); err != nil {
			slog.Error("failed to close record store", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		a.Store.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
