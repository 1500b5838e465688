package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS kv_records (
	k          VARCHAR(191)    NOT NULL PRIMARY KEY,
	v          LONGBLOB        NOT NULL,
	version    BIGINT UNSIGNED NOT NULL,
	updated_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) CHARACTER SET utf8mb4`

// MySQL keeps records in the kv_records table.
type MySQL struct{ DB *sql.DB }

// NewMySQL creates the table if needed.
func NewMySQL(ctx context.Context, db *sql.DB) (*MySQL, error) {
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		return nil, fmt.Errorf("mysql store: create table: %w", err)
	}
	return &MySQL{DB: db}, nil
}

func (r *MySQL) Get(ctx context.Context, key string) (Record, error) {
	var rec Record
	err := r.DB.QueryRowContext(ctx,
		"SELECT v, version FROM kv_records WHERE k=? LIMIT 1", key).Scan(&rec.Data, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrKeyNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("mysql store: get: %w", err)
	}
	return rec, nil
}

func (r *MySQL) Put(ctx context.Context, key string, data []byte, expected uint64) (uint64, error) {
	if expected == 0 {
		_, err := r.DB.ExecContext(ctx,
			"INSERT INTO kv_records (k, v, version) VALUES (?,?,1)", key, data)
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key: someone created it first
			return 0, ErrVersionMismatch
		}
		if err != nil {
			return 0, fmt.Errorf("mysql store: insert: %w", err)
		}
		return 1, nil
	}

	res, err := r.DB.ExecContext(ctx,
		"UPDATE kv_records SET v=?, version=version+1 WHERE k=? AND version=?", data, key, expected)
	if err != nil {
		return 0, fmt.Errorf("mysql store: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mysql store: rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrVersionMismatch
	}
	return expected + 1, nil
}

func (r *MySQL) Close() error { return r.DB.Close() }
