// cmd/migrate/main.go
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"

	"offer-tracker/internal/app"
	"offer-tracker/internal/config"
	"offer-tracker/internal/migrations"
	"offer-tracker/internal/storage/sqlite"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	cfg := config.MustLoad()
	app.SetupLogger(cfg)

	target := flag.Int64("to", migrations.TargetVersion, "schema version to migrate up to")
	flag.Parse()

	db, err := sql.Open("sqlite3", sqlite.DSN(cfg.DatabasePath))
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	slog.Info("Applying migrations", "path", cfg.DatabasePath, "target", *target)
	if err := migrations.UpTo(ctx, db, *target); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}

	version, err := migrations.Version(ctx, db)
	if err != nil {
		slog.Error("Failed to read schema version", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied", "version", version)
}
