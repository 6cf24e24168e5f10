// Package kvstore provides the durable key-value store the reading queue lives in.
package kvstore

import (
	"context"
	"fmt"

	"github.com/septivank/meter-reading-sync/internal/config"
	"github.com/septivank/meter-reading-sync/internal/db"
	"go.uber.org/zap"
)

// Store is a durable string key-value store. Get reports found=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

// Open creates the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, readings will not survive a restart")
		return NewMemoryStore(), nil
	case config.StoreDriverSQLite:
		logger.Info("opening sqlite store", zap.String("path", cfg.SQLitePath))
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, logger, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("[STORE] unknown driver %q", cfg.Driver)
	}
}
