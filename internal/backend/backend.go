// Package backend assembles the configured ledger store and event publisher
// so every entrypoint opens its world the same way.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"sobres/internal/amqp"
	"sobres/internal/config"
	"sobres/internal/ledger"
	"sobres/internal/ledger/memory"
	"sobres/internal/services"
	"sobres/internal/storage"
)

// Result is an opened backend. Cleanup is always non-nil.
type Result struct {
	Store   ledger.Store
	Events  services.EventPublisher
	Cleanup func() error
}

// Open builds the store selected by cfg.DataBackend plus the optional AMQP
// publisher. A missing broker downgrades to no events rather than failing:
// the ledger works standalone, the spreadsheet mirror catches up later.
func Open(ctx context.Context, cfg *config.Config) (*Result, error) {
	result := &Result{Cleanup: func() error { return nil }}

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		result.Store = repo
		result.Cleanup = repo.Close
		slog.InfoContext(ctx, "Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)

	case "memory":
		store := memory.NewStore()
		if err := store.SeedDefaults(ctx); err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
		result.Store = store
		slog.InfoContext(ctx, "Initialized memory backend")

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync",
				"error", err)
		} else {
			result.Events = client
			storeCleanup := result.Cleanup
			result.Cleanup = func() error {
				client.Close()
				return storeCleanup()
			}
			slog.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	return result, nil
}
