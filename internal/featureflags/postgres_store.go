package featureflags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool PostgresStore needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	listFlagsSQL = `SELECT key, value, updated_at FROM feature_flags`

	upsertFlagSQL = `
		INSERT INTO feature_flags (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	deleteFlagSQL = `DELETE FROM feature_flags WHERE key = $1`
)

// PostgresStore keeps overrides in the feature_flags table, one JSONB value
// per key, so every API instance sees the same policies.
type PostgresStore struct {
	db DB
}

// NewPostgresStore returns a store backed by db.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// List reads the whole table; it holds at most one row per domain.
func (s *PostgresStore) List(ctx context.Context) (map[string]*Flag, error) {
	rows, err := s.db.Query(ctx, listFlagsSQL)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}

	flags, err := pgx.CollectRows(rows, scanFlag)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}

	out := make(map[string]*Flag, len(flags))
	for _, flag := range flags {
		out[flag.Key] = flag
	}
	return out, nil
}

// Upsert writes flags in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, flags []*Flag) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin flag update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	for _, flag := range flags {
		value, err := json.Marshal(flag.Value)
		if err != nil {
			return fmt.Errorf("encode flag %q: %w", flag.Key, err)
		}
		if _, err := tx.Exec(ctx, upsertFlagSQL, flag.Key, value, flag.UpdatedAt); err != nil {
			return fmt.Errorf("upsert flag %q: %w", flag.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit flag update: %w", err)
	}
	return nil
}

// Delete removes the row for key.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, deleteFlagSQL, key)
	if err != nil {
		return fmt.Errorf("delete flag %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

func scanFlag(row pgx.CollectableRow) (*Flag, error) {
	var (
		flag  Flag
		value []byte
	)
	if err := row.Scan(&flag.Key, &value, &flag.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(value, &flag.Value); err != nil {
		return nil, fmt.Errorf("decode flag %q: %w", flag.Key, err)
	}
	return &flag, nil
}

var _ Store = (*PostgresStore)(nil)
