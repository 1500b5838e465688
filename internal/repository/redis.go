package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis stores each record as a hash with "data" and "version" fields.
// Put runs inside WATCH/MULTI so a concurrent writer aborts the
// transaction instead of being overwritten.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Get(ctx context.Context, key string) (Record, error) {
	m, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Record{}, fmt.Errorf("redis store: hgetall: %w", err)
	}
	if len(m) == 0 {
		return Record{}, ErrKeyNotFound
	}
	v, err := strconv.ParseUint(m["version"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("redis store: bad version %q: %w", m["version"], err)
	}
	return Record{Data: []byte(m["data"]), Version: v}, nil
}

func (r *Redis) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	next := expected + 1
	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, "version").Uint64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != expected {
			return ErrVersionMismatch
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "data", data, "version", next)
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrVersionMismatch), errors.Is(err, redis.TxFailedErr):
		return 0, ErrVersionMismatch
	default:
		return 0, fmt.Errorf("redis store: put: %w", err)
	}
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error { return nil }
