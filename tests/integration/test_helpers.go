//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/tordrt/schemasync"
)

// newTestClient connects with the given URL and registers the shared blog
// models used by the round-trip tests.
func newTestClient(t *testing.T, ctx context.Context, url, migrationsDir string) *schemasync.Client {
	t.Helper()

	cfg := schemasync.DefaultConfig()
	cfg.Database.URL = url
	cfg.Migrations.Directory = migrationsDir
	cfg.Schema.AddCreatedAtColumn = true

	client, err := schemasync.New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	registerBlogModels(t, client)
	return client
}

func tableNames(s *schemasync.Schema) []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	return names
}

func registerBlogModels(t *testing.T, client *schemasync.Client) {
	t.Helper()

	models := []schemasync.Descriptor{
		{
			Name: "User",
			Fields: []schemasync.FieldDescriptor{
				{Name: "Id", SourceType: "i64", PrimaryKey: true},
				{Name: "Email", SourceType: "String", Unique: true},
				{Name: "Name", SourceType: "String"},
			},
		},
		{
			Name: "Post",
			Fields: []schemasync.FieldDescriptor{
				{Name: "Id", SourceType: "i64", PrimaryKey: true},
				{Name: "Title", SourceType: "String"},
				{Name: "UserId", SourceType: "i64", References: &schemasync.ForeignKeyRef{Model: "User", OnDelete: "CASCADE"}},
			},
		},
	}
	for _, m := range models {
		if err := client.RegisterModel(m); err != nil {
			t.Fatalf("Failed to register model %s: %v", m.Name, err)
		}
	}
}
