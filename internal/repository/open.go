package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-showcase/internal/database"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Dir         string // file backend directory
	SQLitePath  string // defaults to Dir/showcase.db
	PostgresDSN string
	MySQL       database.MySQLConfig
}

// Open builds the backend named by opts.Backend. rdb is only needed for
// the redis backend and may be nil otherwise.
func Open(ctx context.Context, opts Options, rdb *redis.Client, logger *slog.Logger) (KV, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendFile:
		f, err := NewFile(opts.Dir)
		if err != nil {
			return nil, err
		}
		return f, nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("repository: redis backend selected but redis is unreachable")
		}
		return NewRedis(rdb), nil
	case BackendMySQL:
		db, err := database.OpenMySQL(ctx, opts.MySQL)
		if err != nil {
			return nil, err
		}
		kv, err := NewMySQL(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return kv, nil
	case BackendPostgres:
		pool, err := database.OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		kv, err := NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return kv, nil
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("repository: mkdir %s: %w", opts.Dir, err)
			}
			path = filepath.Join(opts.Dir, "showcase.db")
		}
		db, err := OpenSQLite(path, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("repository: unknown backend %q", opts.Backend)
}
