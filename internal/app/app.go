// Package app wires configuration into the store, renderer and service
// shared by the HTTP server and the command-line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/JonMunkholm/tcgen/internal/config"
	"github.com/JonMunkholm/tcgen/internal/core"
	"github.com/JonMunkholm/tcgen/internal/render"
	"github.com/JonMunkholm/tcgen/internal/store"
)

// App owns the opened store and the service built on it.
type App struct {
	Store   store.Store
	Service *core.Service
}

// StoreOptions maps database settings to store options.
func StoreOptions(cfg *config.Config) store.Options {
	return store.Options{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}
}

// Assets maps render settings to the fixed document assets.
func Assets(cfg *config.Config) render.Assets {
	return render.Assets{
		LogoPath:    cfg.Render.LogoPath,
		Institution: cfg.Render.Institution,
		Signatory:   cfg.Render.Signatory,
	}
}

// ServiceOptions maps import, render and batch settings to service options.
func ServiceOptions(cfg *config.Config) core.Options {
	return core.Options{
		OutputDir:     cfg.Render.OutputDir,
		BatchDir:      cfg.Render.BatchDir,
		MaxFileSize:   cfg.Import.MaxFileSize,
		Workers:       cfg.Batch.Workers,
		MaxImports:    cfg.Import.MaxConcurrent,
		MaxJobs:       cfg.Batch.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		ImportTimeout: cfg.Import.Timeout,
		JobTimeout:    cfg.Batch.Timeout,
		JobRetention:  cfg.Batch.ResultTTL,
	}
}

// Open connects to the configured store, prepares the output directory and
// builds the service.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(ctx, StoreOptions(cfg))
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, err
	}

	if err := os.MkdirAll(cfg.Render.OutputDir, 0o755); err != nil {
		st.Close()
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if cfg.Render.LogoPath != "" {
		if _, err := os.Stat(cfg.Render.LogoPath); err != nil {
			slog.Warn("logo not found, documents will omit it", "path", cfg.Render.LogoPath)
		}
	}

	svc := core.NewService(st, render.New(Assets(cfg)), ServiceOptions(cfg))
	return &App{Store: st, Service: svc}, nil
}

// Close waits for running imports and batch jobs, then closes the store.
func (a *App) Close(ctx context.Context) error {
	shutdownErr := a.Service.Shutdown(ctx)
	closeErr := a.Store.Close()
	return errors.Join(shutdownErr, closeErr)
}

// FileResult is the outcome of importing one file.
type FileResult struct {
	Path   string            `json:"path"`
	Result core.ImportResult `json:"result"`
	Err    error             `json:"-"`
}

// SpreadsheetFiles expands paths into the spreadsheet files to import.
// Directories contribute their readable files, sorted by name, without
// descending into subdirectories. Plain files are kept as given.
func SpreadsheetFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", p, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() || !core.SupportedFile(entry.Name()) {
				continue
			}
			found = append(found, filepath.Join(p, entry.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// ImportPaths imports every spreadsheet named by paths. A file that cannot be
// read is recorded in its result and the remaining files are still imported.
func (a *App) ImportPaths(ctx context.Context, paths []string) ([]FileResult, error) {
	files, err := SpreadsheetFiles(paths)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := a.Service.ImportFile(ctx, f)
		if err != nil {
			slog.Warn("import failed", "file", f, "error", err)
		} else {
			slog.Info("import complete", "file", f, "imported", res.Imported, "failed", len(res.Failed))
		}
		results = append(results, FileResult{Path: f, Result: res, Err: err})
	}
	return results, nil
}
