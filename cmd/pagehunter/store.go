package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/pagehunter/internal/config"
	"github.com/nao1215/pagehunter/internal/database"
)

// openDatabase opens PostgreSQL when a database URL is configured and the
// SQLite database in cfg.DBDir otherwise. With create false a missing SQLite
// database is an error, which read-only commands use to point the user at
// crawl.
func openDatabase(ctx context.Context, cfg *config.Config, create bool, logger *slog.Logger) (*database.CrawlDB, error) {
	if cfg.DatabaseURL != "" {
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("database opened", "url", cfg.DatabaseURL)
		return db, nil
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create

	db, err := database.Open(cfg.DBDir, opts)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return nil, fmt.Errorf("%w (run 'pagehunter crawl' first)", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "path", db.Path())
	return db, nil
}
