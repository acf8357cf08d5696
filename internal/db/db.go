// Package db provides dialect-specific database clients and the schema
// analyzers that introspect a live database into the canonical model.
package db

import (
	"context"
	"strings"

	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// Dialect identifies a supported database engine.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// Client is the minimal connection capability the executor and analyzers
// need: statement execution against a pooled connection. Each call borrows
// one connection for its duration.
type Client interface {
	// Dialect returns the engine this client talks to.
	Dialect() Dialect
	// Exec executes a SQL statement, discarding any result rows.
	Exec(ctx context.Context, sql string, args ...any) error
	// Close releases the underlying pool.
	Close() error
}

// Connect opens a client for the configured driver and verifies the
// connection. An unsupported driver is a configuration error.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (Client, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresClient(ctx, cfg)
	case "mysql":
		return NewMySQLClient(ctx, cfg)
	case "sqlite":
		return NewSQLiteClient(ctx, cfg)
	}
	return nil, syncerr.Newf(syncerr.KindConfig, "unsupported database driver: %s", cfg.Driver)
}

// ParseMySQLDatabaseName extracts the database name from a MySQL DSN of the
// form user:pass@tcp(host:port)/dbname?params.
func ParseMySQLDatabaseName(dsn string) (string, error) {
	slash := strings.LastIndex(dsn, "/")
	if slash == -1 || slash == len(dsn)-1 {
		return "", syncerr.Newf(syncerr.KindConfig, "cannot determine database name from DSN")
	}
	name := dsn[slash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	if name == "" {
		return "", syncerr.Newf(syncerr.KindConfig, "cannot determine database name from DSN")
	}
	return name, nil
}
