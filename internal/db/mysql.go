package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// MySQLClient talks to a MySQL database through database/sql.
type MySQLClient struct {
	db       *sql.DB
	database string
}

// NewMySQLClient connects to MySQL and verifies the connection. The URL may
// carry a mysql:// prefix, which is stripped to obtain the driver DSN.
func NewMySQLClient(ctx context.Context, cfg config.DatabaseConfig) (*MySQLClient, error) {
	dsn := strings.TrimPrefix(cfg.URL, "mysql://")

	database, err := ParseMySQLDatabaseName(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindDatabase, err, "failed to open mysql connection")
	}
	if cfg.PoolSize > 0 {
		db.SetMaxOpenConns(cfg.PoolSize)
	}
	if cfg.TimeoutSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, syncerr.Wrap(syncerr.KindDatabase, err, "failed to ping mysql database")
	}
	return &MySQLClient{db: db, database: database}, nil
}

func (c *MySQLClient) Dialect() Dialect { return MySQL }

// Database returns the database name parsed from the DSN, used by the
// analyzer as the information_schema qualifier.
func (c *MySQLClient) Database() string { return c.database }

func (c *MySQLClient) Exec(ctx context.Context, sqlText string, args ...any) error {
	_, err := c.db.ExecContext(ctx, sqlText, args...)
	return syncerr.Wrap(syncerr.KindDatabase, err, "mysql exec failed")
}

func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle for callers that need row-returning
// queries or explicit transactions.
func (c *MySQLClient) DB() *sql.DB {
	return c.db
}
