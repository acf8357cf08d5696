//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	url := "sqlite://" + filepath.Join(dir, "app.db")
	migrationsDir := filepath.Join(dir, "migrations")

	client := newTestClient(t, ctx, url, migrationsDir)
	defer client.Close()

	applied, err := client.Sync(ctx)
	if err != nil {
		t.Fatalf("Initial sync failed: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("Expected migrations on an empty database")
	}

	// migration files exist for every applied unit
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(applied) {
		t.Errorf("Expected %d migration files, found %d", len(applied), len(entries))
	}

	// re-analyzing after apply yields an empty diff (convergence)
	plan, err := client.Plan(ctx)
	if err != nil {
		t.Fatalf("Plan after sync failed: %v", err)
	}
	if !plan.Diff.IsEmpty() {
		t.Errorf("Expected empty diff after sync, got %+v", plan.Diff)
	}

	// a second sync applies nothing
	applied, err = client.Sync(ctx)
	if err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Second sync must be a no-op, applied %d units", len(applied))
	}

	// the analyzed schema reflects the models
	s, err := client.Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	users, ok := s.Tables["users"]
	if !ok {
		t.Fatalf("users table missing, have %v", tableNames(s))
	}
	if users.Column("email") == nil || !users.Column("email").IsUnique {
		t.Error("users.email must be unique")
	}
	if users.Column("created_at") == nil {
		t.Error("users.created_at audit column missing")
	}
	posts, ok := s.Tables["posts"]
	if !ok {
		t.Fatal("posts table missing")
	}
	if len(posts.ForeignKeys) != 1 || posts.ForeignKeys[0].RefTable != "users" {
		t.Errorf("posts foreign key mismatch: %+v", posts.ForeignKeys)
	}
	if posts.ForeignKeys[0].OnDelete != "CASCADE" {
		t.Errorf("on delete action lost: %+v", posts.ForeignKeys[0])
	}
}

func TestSQLiteDryRunTouchesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	url := "sqlite://" + filepath.Join(dir, "app.db")
	migrationsDir := filepath.Join(dir, "migrations")

	client := newTestClient(t, ctx, url, migrationsDir)
	defer client.Close()

	// force dry-run through the plan path: files only, no DDL executed
	plan, err := client.Plan(ctx)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Diff.IsEmpty() {
		t.Fatal("Expected a non-empty plan on an empty database")
	}
	for _, stmt := range plan.Statements {
		if !strings.HasPrefix(stmt.Label, "create_") && !strings.HasPrefix(stmt.Label, "add_") {
			t.Errorf("Unexpected statement on empty database: %s", stmt.Label)
		}
	}

	s, err := client.Analyze(ctx)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(s.Tables) != 0 {
		t.Errorf("Plan must not create tables, found %v", tableNames(s))
	}
}
