// Package migrate applies generated migration units against a live
// database, maintaining an execution history table and the on-disk
// migration files.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/generator"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// Options is the execution policy for one run.
type Options struct {
	// Directory receives one .sql file per unit, written even in dry-run.
	Directory string
	// HistoryTable is the ledger of applied units, created if absent.
	HistoryTable string
	// DryRun writes files and logs statements but never touches the database.
	DryRun bool
	// TransactionPerMigration wraps each unit in BEGIN/COMMIT. On failure
	// the unit rolls back and the run aborts; prior units stay committed.
	TransactionPerMigration bool
}

// Applied describes one executed (or, in dry-run, surfaced) migration unit.
type Applied struct {
	ID            string
	Name          string
	File          string
	Checksum      string
	ExecutionTime time.Duration
}

// Runner executes migration units strictly in their generated order. A
// runner must not be driven concurrently against the same history table;
// single-runner execution is assumed.
type Runner struct {
	client db.Client
	opts   Options
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(client db.Client, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{client: client, opts: opts, logger: logger}
}

// Run applies the units in order. Migration identifiers share the run's UTC
// timestamp with a zero-padded per-unit sequence, so ordering is monotonic
// across runs. Returns the units applied (all of them in dry-run) and the
// first execution error, if any.
func (r *Runner) Run(ctx context.Context, units []generator.Statement) ([]Applied, error) {
	if len(units) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(r.opts.Directory, 0o755); err != nil {
		return nil, syncerr.Wrap(syncerr.KindMigration, err, "failed to create migrations directory")
	}
	if !r.opts.DryRun {
		if err := r.ensureHistoryTable(ctx); err != nil {
			return nil, err
		}
	}

	base := time.Now().UTC().Format("20060102150405")
	var applied []Applied
	for i, unit := range units {
		id := fmt.Sprintf("%s_%04d", base, i+1)
		name := id + "_" + unit.Label + ".sql"
		file := filepath.Join(r.opts.Directory, name)
		if err := os.WriteFile(file, []byte(unit.SQL+"\n"), 0o644); err != nil {
			return applied, syncerr.Wrapf(syncerr.KindMigration, err, "failed to write migration file %s", file)
		}

		if r.opts.DryRun {
			r.logger.Info("dry-run migration", "id", id, "label", unit.Label, "sql", unit.SQL)
			applied = append(applied, Applied{ID: id, Name: name, File: file, Checksum: checksum(unit.SQL)})
			continue
		}

		start := time.Now()
		if err := r.execute(ctx, unit.SQL); err != nil {
			return applied, syncerr.Wrapf(syncerr.KindMigration, err, "migration %s failed", id)
		}
		elapsed := time.Since(start)

		a := Applied{ID: id, Name: name, File: file, Checksum: checksum(unit.SQL), ExecutionTime: elapsed}
		if err := r.recordHistory(ctx, a); err != nil {
			return applied, err
		}
		applied = append(applied, a)
		r.logger.Info("applied migration", "id", id, "label", unit.Label, "duration", elapsed)
	}
	return applied, nil
}

func (r *Runner) execute(ctx context.Context, sql string) error {
	if !r.opts.TransactionPerMigration {
		return r.client.Exec(ctx, sql)
	}
	if err := r.client.Exec(ctx, "BEGIN"); err != nil {
		return err
	}
	if err := r.client.Exec(ctx, sql); err != nil {
		if rbErr := r.client.Exec(ctx, "ROLLBACK"); rbErr != nil {
			r.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	return r.client.Exec(ctx, "COMMIT")
}

func (r *Runner) ensureHistoryTable(ctx context.Context) error {
	table := r.opts.HistoryTable
	var ddl string
	switch r.client.Dialect() {
	case db.Postgres:
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id SERIAL PRIMARY KEY,
    migration_id VARCHAR(64) NOT NULL,
    name VARCHAR(255) NOT NULL,
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
    checksum VARCHAR(64),
    execution_time_ms BIGINT
)`, table)
	case db.MySQL:
		ddl = fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (\n"+
			"    id INT AUTO_INCREMENT PRIMARY KEY,\n"+
			"    migration_id VARCHAR(64) NOT NULL,\n"+
			"    name VARCHAR(255) NOT NULL,\n"+
			"    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,\n"+
			"    checksum VARCHAR(64),\n"+
			"    execution_time_ms BIGINT\n"+
			")", table)
	case db.SQLite:
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    migration_id TEXT NOT NULL,
    name TEXT NOT NULL,
    applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    checksum TEXT,
    execution_time_ms INTEGER
)`, table)
	default:
		return syncerr.Newf(syncerr.KindMigration, "no history table DDL for dialect %s", r.client.Dialect())
	}
	return syncerr.Wrap(syncerr.KindMigration, r.client.Exec(ctx, ddl), "failed to ensure history table")
}

func (r *Runner) recordHistory(ctx context.Context, a Applied) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (migration_id, name, checksum, execution_time_ms) VALUES (?, ?, ?, ?)",
		r.historyTableRef(),
	)
	if r.client.Dialect() == db.Postgres {
		query = rebindPlaceholders(query)
	}
	err := r.client.Exec(ctx, query, a.ID, a.Name, a.Checksum, a.ExecutionTime.Milliseconds())
	return syncerr.Wrapf(syncerr.KindMigration, err, "failed to record migration %s in history", a.ID)
}

func (r *Runner) historyTableRef() string {
	switch r.client.Dialect() {
	case db.MySQL:
		return "`" + r.opts.HistoryTable + "`"
	case db.SQLite:
		return `"` + r.opts.HistoryTable + `"`
	}
	return r.opts.HistoryTable
}

// rebindPlaceholders rewrites ? placeholders to the $n form.
func rebindPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func checksum(sql string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(sql))
}
