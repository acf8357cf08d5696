package db

import (
	"context"

	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// Analyzer introspects a live database into the canonical schema model.
type Analyzer interface {
	// AnalyzeSchema reads the full schema: tables and views.
	AnalyzeSchema(ctx context.Context, schemaName string) (*schema.Schema, error)
	// AnalyzeTables reads all base tables with their columns, primary keys,
	// indexes and foreign keys.
	AnalyzeTables(ctx context.Context, schemaName string) (map[string]*schema.Table, error)
	// AnalyzeViews reads all views.
	AnalyzeViews(ctx context.Context, schemaName string) (map[string]*schema.View, error)
}

// NewAnalyzer returns the analyzer matching the client's dialect.
func NewAnalyzer(client Client) (Analyzer, error) {
	switch c := client.(type) {
	case *PostgresClient:
		return &postgresAnalyzer{client: c}, nil
	case *MySQLClient:
		return &mysqlAnalyzer{client: c}, nil
	case *SQLiteClient:
		return &sqliteAnalyzer{client: c}, nil
	}
	return nil, syncerr.Newf(syncerr.KindAnalysis, "no analyzer for dialect %s", client.Dialect())
}

// markUniqueColumns flags columns covered by a single-column unique index,
// excluding a sole primary-key column. Called after columns, the primary key
// and the indexes of a table have been extracted, so uniqueness is reported
// consistently across dialects.
func markUniqueColumns(t *schema.Table) {
	for _, idx := range t.Indexes {
		if !idx.IsUnique || len(idx.Columns) != 1 {
			continue
		}
		name := idx.Columns[0]
		if t.PrimaryKey != nil && len(t.PrimaryKey.Columns) == 1 && t.PrimaryKey.Columns[0] == name {
			continue
		}
		if col := t.Column(name); col != nil {
			col.IsUnique = true
		}
	}
}
