// Command initdb applies the posts schema migrations to the configured database.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dailyposts/blog-api/cmd/internal/config"
	"github.com/dailyposts/blog-api/cmd/internal/database"
	"github.com/dailyposts/blog-api/cmd/internal/logging"
	"github.com/dailyposts/blog-api/cmd/internal/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	if !cfg.UsesSQL() {
		logger.Info("nothing to migrate", "driver", cfg.Storage.Driver)
		return
	}

	db, err := database.Open(context.Background(), cfg.Storage.Driver, cfg.Database)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.Up(db, cfg.Storage.Driver); err != nil {
		logger.Error("migration failed", "driver", cfg.Storage.Driver, "error", err)
		db.Close()
		os.Exit(1)
	}
	logger.Info("database initialized", "driver", cfg.Storage.Driver, "database", cfg.Database.Name)
}
