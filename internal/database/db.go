// Package database opens the SQL connections used by the keyed-record
// backends: MySQL through database/sql, Postgres through a pgx pool and
// SQLite through a zombiezen connection pool.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig names the connection parameters read from DB_* variables.
type MySQLConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(ctx context.Context, c MySQLConfig) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = c.Name
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}

	// The catalog is one row; a small pool is plenty.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping %s: %w", mc.Addr, err)
	}
	return db, nil
}
