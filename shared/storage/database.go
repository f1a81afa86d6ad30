package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"progress-dashboard/shared/config"
)

// DB wraps the connection pool together with the driver name, which decides
// the placeholder style.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the dashboard's database. The managed deployment uses
// Postgres through pgx; sqlite is used for local copies and tests.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// One writer at a time; readers share the single connection.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	return &DB{conn: conn, driver: cfg.Driver}, nil
}

// Connection exposes the pool for callers that need raw access.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// asText selects a column as its stored text. Typed date and timestamp
// columns would otherwise come back parsed as UTC, losing the fact that a
// value without an offset is local to the dashboard.
func (db *DB) asText(column string) string {
	if db.driver == "pgx" {
		return column + "::text"
	}
	return "CAST(" + column + " AS TEXT)"
}

// rebind rewrites ? placeholders to $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != "pgx" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
