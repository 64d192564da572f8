// Package app wires config, logging, tracing, storage and the service for the
// binaries under cmd/ and the root main.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"offer-tracker/internal/backup"
	"offer-tracker/internal/config"
	"offer-tracker/internal/dates"
	"offer-tracker/internal/service"
	"offer-tracker/internal/storage/sqlite"
	"offer-tracker/internal/tracing"
)

type App struct {
	Config  config.Config
	Store   *sqlite.Storage
	Service *service.Service
	Backup  *backup.Backup
	Tracing *tracing.Provider
}

// SetupLogger installs a text slog handler on stdout at cfg's level.
func SetupLogger(cfg config.Config) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
}

// Open opens and migrates the store and builds the service on top of it.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	tp, err := tracing.Setup(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	loc, err := dates.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	slog.Info("Store opened", "path", cfg.DatabasePath, "schema_version", version,
		"timezone", loc.String(), "tracing", tp.Enabled())

	return &App{
		Config:  cfg,
		Store:   store,
		Service: service.New(store, service.WithLocation(loc), service.WithTracer(tp.Tracer())),
		Backup:  backup.New(store),
		Tracing: tp,
	}, nil
}

// Close flushes traces and closes the store.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(a.Tracing.Shutdown(ctx), a.Store.Close())
}
