package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"health-sync/core/config"
	"health-sync/core/database"
	"health-sync/core/logger"
	"health-sync/core/sink"
	"health-sync/core/storage"
)

// setup loads configuration and builds the logger, shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

// buildSink connects the configured store backend and wraps it in the
// reconciliation sink.
func buildSink(cfg *config.Config, l *zap.Logger) (*sink.Sink, error) {
	switch cfg.Sink.Backend {
	case sink.BackendObject:
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		store := sink.NewObjectStore(client, cfg.Storage.Bucket, cfg.Sink.Object)
		return sink.New(store, l), nil

	case sink.BackendDatabase:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := sink.NewGormStore(db, cfg.Sink.Table)
		return sink.New(store, l), nil

	default:
		return nil, fmt.Errorf("unknown sink backend %q (valid: %s, %s)",
			cfg.Sink.Backend, sink.BackendObject, sink.BackendDatabase)
	}
}
