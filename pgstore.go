package lendcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ WritableStore[string, int] = &PostgresStore[string, int]{}

// PostgresConfig controls PostgresStore instance.
type PostgresConfig struct {
	// DSN is a connection string, ignored when Pool is provided.
	DSN string

	// Pool is an existing connection pool to use, closing the store leaves it open.
	Pool *pgxpool.Pool

	// Table is the key-value table name, default "lendcache". Created when missing.
	Table string

	// Codec serializes keys and values, default GobCodec.
	Codec Codec
}

// PostgresStore persists values in a Postgres key-value table.
//
// Statements are committed individually, Commit is a no-op.
type PostgresStore[K comparable, V any] struct {
	pool    *pgxpool.Pool
	table   string
	codec   Codec
	ownPool bool
}

// NewPostgresStore creates a Postgres-backed store and ensures its table exists.
func NewPostgresStore[K comparable, V any](ctx context.Context, cfg PostgresConfig) (*PostgresStore[K, V], error) {
	table := cfg.Table
	if table == "" {
		table = "lendcache"
	}

	codec := cfg.Codec
	if codec == nil {
		codec = GobCodec{}
	}

	pool := cfg.Pool
	ownPool := false

	if pool == nil {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}

		p, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}

		pool = p
		ownPool = true
	}

	s := &PostgresStore[K, V]{
		pool:    pool,
		table:   table,
		codec:   codec,
		ownPool: ownPool,
	}

	if err := pool.Ping(ctx); err != nil {
		s.Close()

		return nil, err
	}

	if err := s.ensureSchema(ctx); err != nil {
		s.Close()

		return nil, err
	}

	return s, nil
}

// Contains reports key presence.
func (s *PostgresStore[K, V]) Contains(ctx context.Context, key K) bool {
	k, err := s.codec.Encode(key)
	if err != nil {
		return false
	}

	var ok bool

	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE key = $1)`, s.table), k).Scan(&ok)

	return err == nil && ok
}

// Fetch reads and decodes the value of a key.
func (s *PostgresStore[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V

	k, err := s.codec.Encode(key)
	if err != nil {
		return zero, err
	}

	var data []byte

	err = s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table), k).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, ErrNotFound
	}

	if err != nil {
		return zero, err
	}

	var v V
	if err := s.codec.Decode(data, &v); err != nil {
		return zero, err
	}

	return v, nil
}

// Replace is a no-op, table rows keep authoritative copies.
func (s *PostgresStore[K, V]) Replace(_ context.Context, _ K, _ V) error {
	return nil
}

// Insert encodes and upserts the value.
func (s *PostgresStore[K, V]) Insert(ctx context.Context, key K, value V) error {
	k, err := s.codec.Encode(key)
	if err != nil {
		return err
	}

	data, err := s.codec.Encode(value)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.table),
		k, data)

	return err
}

// Remove deletes the value of a key.
func (s *PostgresStore[K, V]) Remove(ctx context.Context, key K) error {
	k, err := s.codec.Encode(key)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), k)

	return err
}

// Commit is a no-op, every statement is committed on its own.
func (s *PostgresStore[K, V]) Commit(_ context.Context) error {
	return nil
}

// Close closes the pool if the store created it.
func (s *PostgresStore[K, V]) Close() {
	if s.ownPool && s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore[K, V]) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key BYTEA PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.table)

	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return nil
}
