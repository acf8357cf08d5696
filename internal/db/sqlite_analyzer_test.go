package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSQLiteAnalyzerMock(t *testing.T) (*sqliteAnalyzer, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mockDB.Close() })
	client := &SQLiteClient{db: mockDB}
	return &sqliteAnalyzer{client: client}, mock
}

func TestSQLiteAnalyzeTables(t *testing.T) {
	a, mock := newSQLiteAnalyzerMock(t)

	mock.ExpectQuery("SELECT name(?s:.+)sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("posts"))

	mock.ExpectQuery("PRAGMA table_info").
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "id", "INTEGER", 0, nil, 1).
			AddRow(1, "title", "TEXT", 1, nil, 0).
			AddRow(2, "status", "TEXT", 1, "'draft'", 0).
			AddRow(3, "user_id", "INTEGER", 1, nil, 0))

	mock.ExpectQuery("PRAGMA index_list").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "name", "unique", "origin", "partial"}).
			AddRow(0, "ix_posts_title", 1, "c", 0).
			AddRow(1, "sqlite_autoindex_posts_1", 1, "u", 0))

	mock.ExpectQuery("PRAGMA index_info").
		WillReturnRows(sqlmock.NewRows([]string{"seqno", "cid", "name"}).AddRow(0, 1, "title"))

	mock.ExpectQuery("PRAGMA foreign_key_list").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"}).
			AddRow(0, 0, "users", "user_id", "id", "NO ACTION", "CASCADE", "NONE"))

	tables, err := a.AnalyzeTables(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	posts := tables["posts"]
	if posts == nil {
		t.Fatalf("expected posts table, got %v", tables)
	}

	id := posts.Column("id")
	if id == nil || id.Nullable {
		t.Errorf("primary-key column must be reported NOT NULL: %+v", id)
	}
	if posts.PrimaryKey == nil || posts.PrimaryKey.Columns[0] != "id" {
		t.Errorf("unexpected primary key: %+v", posts.PrimaryKey)
	}
	if status := posts.Column("status"); status == nil || status.Default == nil || *status.Default != "'draft'" {
		t.Errorf("default expression lost: %+v", status)
	}

	if len(posts.Indexes) != 1 {
		t.Fatalf("sqlite_autoindex entries must be skipped, got %+v", posts.Indexes)
	}
	if idx := posts.Indexes[0]; idx.Name != "ix_posts_title" || !idx.IsUnique {
		t.Errorf("unexpected index: %+v", idx)
	}
	// single-column unique index marks the column unique
	if title := posts.Column("title"); title == nil || !title.IsUnique {
		t.Errorf("title must be flagged unique: %+v", title)
	}

	if len(posts.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %+v", posts.ForeignKeys)
	}
	fk := posts.ForeignKeys[0]
	if fk.Name != "fk_posts_user_id" {
		t.Errorf("synthesized name = %s, want fk_posts_user_id", fk.Name)
	}
	if fk.RefTable != "users" || fk.OnDelete != "CASCADE" || fk.RefColumns[0] != "id" {
		t.Errorf("unexpected foreign key: %+v", fk)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLiteAnalyzeViews(t *testing.T) {
	a, mock := newSQLiteAnalyzerMock(t)

	mock.ExpectQuery("SELECT name, sql(?s:.+)sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"name", "sql"}).
			AddRow("recent_posts", "CREATE VIEW recent_posts AS SELECT * FROM posts"))

	views, err := a.AnalyzeViews(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if v := views["recent_posts"]; v == nil || v.Definition == "" {
		t.Errorf("unexpected views: %+v", views)
	}
}

func TestParseMySQLDatabaseName(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{"user:pass@tcp(localhost:3306)/appdb?parseTime=true", "appdb", false},
		{"user:pass@tcp(localhost:3306)/appdb", "appdb", false},
		{"user:pass@tcp(localhost:3306)/", "", true},
		{"no-slash-here", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMySQLDatabaseName(tt.dsn)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMySQLDatabaseName(%q): expected error", tt.dsn)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMySQLDatabaseName(%q): %v", tt.dsn, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMySQLDatabaseName(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}
