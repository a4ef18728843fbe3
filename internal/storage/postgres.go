package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements RecordStore on a single subscription_records
// table (see migrations). Used when the API runs against the main
// application database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a record store on an existing pgx pool.
// The subscription_records table must exist (run migrations first).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get retrieves a record row.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM subscription_records WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	return value, nil
}

// Set upserts a record row.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscription_records (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Delete removes a record row. Deleting a missing key is not an error.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM subscription_records WHERE key = $1`, key,
	); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}
