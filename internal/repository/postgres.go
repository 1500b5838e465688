package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS kv_records (
	k          TEXT        PRIMARY KEY,
	v          BYTEA       NOT NULL,
	version    BIGINT      NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres keeps records in the kv_records table through a pgx pool.
type Postgres struct{ Pool *pgxpool.Pool }

// NewPostgres creates the table if needed.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("postgres store: create table: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

func (r *Postgres) Get(ctx context.Context, key string) (Record, error) {
	var (
		rec Record
		ver int64
	)
	err := r.Pool.QueryRow(ctx, "SELECT v, version FROM kv_records WHERE k=$1", key).Scan(&rec.Data, &ver)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrKeyNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("postgres store: get: %w", err)
	}
	rec.Version = uint64(ver)
	return rec, nil
}

func (r *Postgres) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	var (
		sql  string
		args []any
	)
	if expected == 0 {
		sql = "INSERT INTO kv_records (k, v, version) VALUES ($1, $2, 1) ON CONFLICT (k) DO NOTHING"
		args = []any{key, data}
	} else {
		sql = "UPDATE kv_records SET v=$1, version=version+1, updated_at=now() WHERE k=$2 AND version=$3"
		args = []any{data, key, int64(expected)}
	}
	tag, err := r.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("postgres store: put: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrVersionMismatch
	}
	return expected + 1, nil
}

func (r *Postgres) Close() error {
	r.Pool.Close()
	return nil
}
