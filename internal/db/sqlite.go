package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// SQLiteClient talks to a SQLite database file through database/sql.
type SQLiteClient struct {
	db *sql.DB
}

// NewSQLiteClient opens a SQLite database file and verifies it is readable.
// The URL may carry a sqlite:// prefix, which is stripped to obtain the file
// path. Foreign key enforcement is switched on for the connection.
func NewSQLiteClient(ctx context.Context, cfg config.DatabaseConfig) (*SQLiteClient, error) {
	path := strings.TrimPrefix(cfg.URL, "sqlite://")
	if path == "" {
		return nil, syncerr.New(syncerr.KindConfig, "sqlite database path is empty")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindDatabase, err, "failed to open sqlite database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, syncerr.Wrap(syncerr.KindDatabase, err, "failed to open sqlite database")
	}
	return &SQLiteClient{db: db}, nil
}

func (c *SQLiteClient) Dialect() Dialect { return SQLite }

func (c *SQLiteClient) Exec(ctx context.Context, sqlText string, args ...any) error {
	_, err := c.db.ExecContext(ctx, sqlText, args...)
	return syncerr.Wrap(syncerr.KindDatabase, err, "sqlite exec failed")
}

func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle for callers that need row-returning
// queries or explicit transactions.
func (c *SQLiteClient) DB() *sql.DB {
	return c.db
}
