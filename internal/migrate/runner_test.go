package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/generator"
	"github.com/tordrt/schemasync/internal/syncerr"
)

type execCall struct {
	sql  string
	args []any
}

// fakeClient records executed statements and can fail on demand.
type fakeClient struct {
	dialect db.Dialect
	execs   []execCall
	failOn  string
}

func (c *fakeClient) Dialect() db.Dialect { return c.dialect }
func (c *fakeClient) Close() error        { return nil }

func (c *fakeClient) Exec(_ context.Context, sql string, args ...any) error {
	c.execs = append(c.execs, execCall{sql: sql, args: args})
	if c.failOn != "" && strings.Contains(sql, c.failOn) {
		return syncerr.New(syncerr.KindDatabase, "injected failure")
	}
	return nil
}

func (c *fakeClient) executed(substr string) int {
	n := 0
	for _, e := range c.execs {
		if strings.Contains(e.sql, substr) {
			n++
		}
	}
	return n
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Directory:               t.TempDir(),
		HistoryTable:            "_schemasync_migrations",
		TransactionPerMigration: true,
	}
}

func TestRunAppliesUnitsInOrder(t *testing.T) {
	client := &fakeClient{dialect: db.SQLite}
	opts := testOptions(t)
	r := NewRunner(client, opts, nil)

	units := []generator.Statement{
		{Label: "create_table_users", SQL: "CREATE TABLE users (id INTEGER)"},
		{Label: "create_index_ix_users_id", SQL: "CREATE INDEX ix_users_id ON users (id)"},
	}
	applied, err := r.Run(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied units, got %d", len(applied))
	}

	if client.executed("CREATE TABLE IF NOT EXISTS") != 1 {
		t.Error("history table must be ensured exactly once")
	}
	if got := client.executed("BEGIN"); got != 2 {
		t.Errorf("expected 2 BEGINs, got %d", got)
	}
	if got := client.executed("COMMIT"); got != 2 {
		t.Errorf("expected 2 COMMITs, got %d", got)
	}
	if got := client.executed("INSERT INTO"); got != 2 {
		t.Errorf("expected 2 history inserts, got %d", got)
	}

	// identifiers share the run timestamp and increment
	if applied[0].ID >= applied[1].ID {
		t.Errorf("migration ids must be monotonic: %s, %s", applied[0].ID, applied[1].ID)
	}
	if applied[0].ID[:14] != applied[1].ID[:14] {
		t.Errorf("migration ids must share the run timestamp: %s, %s", applied[0].ID, applied[1].ID)
	}

	// one file per unit
	for _, a := range applied {
		if _, err := os.Stat(a.File); err != nil {
			t.Errorf("migration file missing: %v", err)
		}
		if !strings.HasSuffix(a.File, ".sql") {
			t.Errorf("unexpected file name %s", a.File)
		}
	}
}

func TestRunDryRun(t *testing.T) {
	client := &fakeClient{dialect: db.Postgres}
	opts := testOptions(t)
	opts.DryRun = true
	r := NewRunner(client, opts, nil)

	units := []generator.Statement{{Label: "create_table_users", SQL: "CREATE TABLE users (id INTEGER)"}}
	applied, err := r.Run(context.Background(), units)
	if err != nil {
		t.Fatal(err)
	}
	if len(client.execs) != 0 {
		t.Errorf("dry-run must not touch the database, got %d statements", len(client.execs))
	}
	if len(applied) != 1 || applied[0].Checksum == "" {
		t.Errorf("dry-run must still surface units with checksums, got %+v", applied)
	}

	// the file is written even in dry-run
	entries, err := os.ReadDir(opts.Directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 migration file in dry-run, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(opts.Directory, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "CREATE TABLE users") {
		t.Errorf("file content mismatch: %q", data)
	}
}

func TestRunFailureRollsBackAndAborts(t *testing.T) {
	client := &fakeClient{dialect: db.SQLite, failOn: "CREATE INDEX"}
	r := NewRunner(client, testOptions(t), nil)

	units := []generator.Statement{
		{Label: "create_table_users", SQL: "CREATE TABLE users (id INTEGER)"},
		{Label: "create_index_bad", SQL: "CREATE INDEX ix_bad ON users (missing)"},
		{Label: "create_table_posts", SQL: "CREATE TABLE posts (id INTEGER)"},
	}
	applied, err := r.Run(context.Background(), units)
	if err == nil {
		t.Fatal("expected the run to fail")
	}
	if !syncerr.IsKind(err, syncerr.KindMigration) {
		t.Errorf("expected a migration error, got %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("prior units stay applied, got %d", len(applied))
	}
	if client.executed("ROLLBACK") != 1 {
		t.Error("failed unit must roll back")
	}
	if client.executed("CREATE TABLE posts") != 0 {
		t.Error("run must abort after a failure")
	}
	if client.executed("INSERT INTO") != 1 {
		t.Error("history must reflect only committed units")
	}
}

func TestRunPostgresHistoryInsertUsesDollarPlaceholders(t *testing.T) {
	client := &fakeClient{dialect: db.Postgres}
	r := NewRunner(client, testOptions(t), nil)

	units := []generator.Statement{{Label: "noop", SQL: "SELECT 1"}}
	if _, err := r.Run(context.Background(), units); err != nil {
		t.Fatal(err)
	}

	var insert string
	for _, e := range client.execs {
		if strings.HasPrefix(e.sql, "INSERT INTO") {
			insert = e.sql
		}
	}
	if !strings.Contains(insert, "$1") || !strings.Contains(insert, "$4") {
		t.Errorf("postgres insert must use $n placeholders, got %q", insert)
	}
	if strings.Contains(insert, "?") {
		t.Errorf("postgres insert must not contain ?, got %q", insert)
	}
}

func TestRebindPlaceholders(t *testing.T) {
	got := rebindPlaceholders("INSERT INTO t (a, b, c) VALUES (?, ?, ?)")
	want := "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"
	if got != want {
		t.Errorf("rebindPlaceholders = %q, want %q", got, want)
	}
}

func TestRunNothingToDo(t *testing.T) {
	client := &fakeClient{dialect: db.SQLite}
	applied, err := NewRunner(client, testOptions(t), nil).Run(context.Background(), nil)
	if err != nil || applied != nil {
		t.Errorf("empty unit list must be a no-op, got %v, %v", applied, err)
	}
}
