package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// PostgresClient talks to a PostgreSQL database over a pgx connection pool.
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient connects to PostgreSQL and verifies the connection.
func NewPostgresClient(ctx context.Context, cfg config.DatabaseConfig) (*PostgresClient, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfig, err, "invalid postgres connection url")
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.TimeoutSeconds > 0 {
		poolCfg.ConnConfig.ConnectTimeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindDatabase, err, "failed to create postgres connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, syncerr.Wrap(syncerr.KindDatabase, err, "failed to ping postgres database")
	}
	return &PostgresClient{pool: pool}, nil
}

func (c *PostgresClient) Dialect() Dialect { return Postgres }

func (c *PostgresClient) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.pool.Exec(ctx, sql, args...)
	return syncerr.Wrap(syncerr.KindDatabase, err, "postgres exec failed")
}

func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}

// Pool exposes the underlying pool for callers that need row-returning
// queries or explicit transactions.
func (c *PostgresClient) Pool() *pgxpool.Pool {
	return c.pool
}
