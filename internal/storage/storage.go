package storage

import (
	"context"
	"fmt"
)

// RecordStore defines the key-value persistence capability behind the
// subscription store. Values are JSON-serialized records; keys are fixed
// per-account storage keys.
//
// Implementations: MemoryStore, LocalStore, RedisStore, PostgresStore.
type RecordStore interface {
	// Get retrieves the value stored at key.
	// Returns ErrKeyNotFound if no value exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value at key.
	// Returns nil if the key doesn't exist (idempotent).
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a RecordStore backend.
type Config struct {
	Provider  string // "memory", "local", "redis", or "postgres"
	LocalPath string // directory for the local provider
	RedisURL  string // connection URL for the redis provider
}

// NewRecordStore creates a RecordStore implementation based on
// configuration. The postgres provider is constructed separately from a
// pgx pool (see NewPostgresStore) since it shares the application pool.
func NewRecordStore(cfg Config) (RecordStore, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryStore(), nil
	case "local":
		return NewLocalStore(cfg.LocalPath)
	case "redis":
		return NewRedisStore(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
