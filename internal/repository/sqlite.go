package repository

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/iliyamo/event-showcase/internal/database"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv_records (
	k          TEXT    PRIMARY KEY,
	v          BLOB    NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`

// SQLite keeps records in a local database file, which several
// processes on one host may share.
type SQLite struct {
	pool *database.SQLitePool
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	pool, err := database.OpenSQLite(database.SQLiteConfig{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, err
	}
	return &SQLite{pool: pool}, nil
}

func (r *SQLite) Get(ctx context.Context, key string) (Record, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return Record{}, err
	}
	defer r.pool.Put(conn)

	var (
		rec   Record
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT v, version FROM kv_records WHERE k = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rec.Data = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, rec.Data)
			rec.Version = uint64(stmt.ColumnInt64(1))
			found = true
			return nil
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("sqlite store: get: %w", err)
	}
	if !found {
		return Record{}, ErrKeyNotFound
	}
	return rec, nil
}

func (r *SQLite) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer r.pool.Put(conn)

	if expected == 0 {
		err = sqlitex.Execute(conn,
			"INSERT INTO kv_records (k, v, version) VALUES (?, ?, 1) ON CONFLICT(k) DO NOTHING",
			&sqlitex.ExecOptions{Args: []any{key, data}})
	} else {
		err = sqlitex.Execute(conn,
			"UPDATE kv_records SET v = ?, version = version + 1, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE k = ? AND version = ?",
			&sqlitex.ExecOptions{Args: []any{data, key, int64(expected)}})
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite store: put: %w", err)
	}
	if conn.Changes() == 0 {
		return 0, ErrVersionMismatch
	}
	return expected + 1, nil
}

func (r *SQLite) Close() error { return r.pool.Close() }
