// Package main runs the studyloop API server: it ingests uploaded study
// material into learning units in the background and serves interactive
// exercise sessions over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/studyloop/internal/config"
	"github.com/phrazzld/studyloop/internal/platform/logger"
	"github.com/phrazzld/studyloop/internal/platform/postgres"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	migrateDown := flag.Bool("migrate-down", false, "roll back every migration and exit")
	flag.Parse()

	if err := run(*migrateOnly, *migrateDown); err != nil {
		log.Fatalf("studyloop server: %v", err)
	}
}

func run(migrateOnly, migrateDown bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_enabled", cfg.Storage.Bucket != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}

	if migrateDown {
		defer closeDB(db, log)
		return postgres.MigrateDown(ctx, db, log)
	}
	if err := postgres.Migrate(ctx, db, log); err != nil {
		closeDB(db, log)
		return err
	}
	if migrateOnly {
		closeDB(db, log)
		return nil
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		closeDB(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func closeDB(db interface{ Close() error }, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("error closing database connection", "error", err)
	}
}
