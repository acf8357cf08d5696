package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMySQLAnalyzerMock(t *testing.T) (*mysqlAnalyzer, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mockDB.Close() })
	client := &MySQLClient{db: mockDB, database: "testdb"}
	return &mysqlAnalyzer{client: client}, mock
}

func TestMySQLAnalyzeTables(t *testing.T) {
	a, mock := newMySQLAnalyzerMock(t)

	mock.ExpectQuery("SELECT table_name").
		WithArgs("testdb").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("posts"))

	mock.ExpectQuery("SELECT(?s:.+)FROM information_schema.columns").
		WithArgs("testdb", "posts").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "column_type", "is_nullable", "column_default", "extra", "generation_expression",
		}).
			AddRow("id", "bigint", "NO", nil, "auto_increment", nil).
			AddRow("title", "varchar(255)", "NO", nil, "", nil).
			AddRow("user_id", "bigint", "YES", nil, "", nil))

	mock.ExpectQuery("SELECT column_name(?s:.+)key_column_usage").
		WithArgs("testdb", "posts").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))

	mock.ExpectQuery("SELECT index_name(?s:.+)statistics").
		WithArgs("testdb", "posts").
		WillReturnRows(sqlmock.NewRows([]string{"index_name", "non_unique", "index_type", "column_name"}).
			AddRow("ix_posts_title_user_id", 1, "BTREE", "title").
			AddRow("ix_posts_title_user_id", 1, "BTREE", "user_id").
			AddRow("ix_posts_slug", 0, "BTREE", "slug"))

	mock.ExpectQuery("SELECT(?s:.+)referenced_table_name(?s:.+)").
		WithArgs("testdb", "posts").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "column_name", "referenced_table_name", "referenced_column_name", "delete_rule", "update_rule",
		}).AddRow("fk_posts_user_id", "user_id", "users", "id", "CASCADE", "NO ACTION"))

	tables, err := a.AnalyzeTables(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	posts, ok := tables["posts"]
	if !ok {
		t.Fatalf("expected posts table, got %v", tables)
	}

	if len(posts.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %+v", posts.Columns)
	}
	if posts.Columns[1].DataType != "varchar(255)" {
		t.Errorf("column_type must be kept verbatim, got %s", posts.Columns[1].DataType)
	}
	if !posts.Columns[2].Nullable || posts.Columns[0].Nullable {
		t.Errorf("nullability mismatch: %+v", posts.Columns)
	}

	if posts.PrimaryKey == nil || posts.PrimaryKey.Name != "PRIMARY" || posts.PrimaryKey.Columns[0] != "id" {
		t.Errorf("unexpected primary key: %+v", posts.PrimaryKey)
	}

	if len(posts.Indexes) != 2 {
		t.Fatalf("expected 2 indexes, got %+v", posts.Indexes)
	}
	multi := posts.Index("ix_posts_title_user_id")
	if multi == nil || len(multi.Columns) != 2 || multi.Columns[1] != "user_id" {
		t.Errorf("multi-column index rows must accumulate in order: %+v", multi)
	}
	if multi.Method != "btree" {
		t.Errorf("index method = %s, want btree", multi.Method)
	}
	if uniq := posts.Index("ix_posts_slug"); uniq == nil || !uniq.IsUnique {
		t.Errorf("non_unique=0 must map to a unique index: %+v", uniq)
	}

	if len(posts.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %+v", posts.ForeignKeys)
	}
	fk := posts.ForeignKeys[0]
	if fk.Name != "fk_posts_user_id" || fk.RefTable != "users" || fk.OnDelete != "CASCADE" {
		t.Errorf("unexpected foreign key: %+v", fk)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLAnalyzeViews(t *testing.T) {
	a, mock := newMySQLAnalyzerMock(t)

	mock.ExpectQuery("SELECT table_name, view_definition").
		WithArgs("testdb").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "view_definition"}).
			AddRow("active_users", "select * from users where active = 1"))

	views, err := a.AnalyzeViews(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	v, ok := views["active_users"]
	if !ok || v.Definition == "" || v.IsMaterialized {
		t.Errorf("unexpected view: %+v", views)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
