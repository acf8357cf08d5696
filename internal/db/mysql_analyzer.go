package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// mysqlAnalyzer introspects MySQL through information_schema. The schema
// qualifier is the database name from the DSN unless one is given.
type mysqlAnalyzer struct {
	client *MySQLClient
}

func (a *mysqlAnalyzer) schemaName(requested string) string {
	if requested != "" {
		return requested
	}
	return a.client.Database()
}

func (a *mysqlAnalyzer) AnalyzeSchema(ctx context.Context, schemaName string) (*schema.Schema, error) {
	schemaName = a.schemaName(schemaName)
	s := schema.NewSchema(schemaName)

	tables, err := a.AnalyzeTables(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		s.AddTable(t)
	}

	views, err := a.AnalyzeViews(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		s.AddView(v)
	}

	return s, nil
}

func (a *mysqlAnalyzer) AnalyzeTables(ctx context.Context, schemaName string) (map[string]*schema.Table, error) {
	schemaName = a.schemaName(schemaName)
	names, err := a.tableNames(ctx, schemaName)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list mysql tables")
	}

	tables := make(map[string]*schema.Table, len(names))
	for _, name := range names {
		table, err := a.analyzeTable(ctx, schemaName, name)
		if err != nil {
			return nil, syncerr.Wrapf(syncerr.KindAnalysis, err, "failed to analyze table %s", name)
		}
		tables[name] = table
	}
	return tables, nil
}

func (a *mysqlAnalyzer) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := a.client.DB().QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (a *mysqlAnalyzer) analyzeTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	table := schema.NewTable(tableName)

	columns, err := a.extractColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := a.extractPrimaryKey(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	table.PrimaryKey = pk

	indexes, err := a.extractIndexes(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	fks, err := a.extractForeignKeys(ctx, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.ForeignKeys = fks

	markUniqueColumns(table)
	return table, nil
}

func (a *mysqlAnalyzer) extractColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	// column_type keeps the length and precision modifiers, e.g.
	// varchar(255) or decimal(10,2), which is what the generator emits.
	query := `
		SELECT
			column_name,
			column_type,
			is_nullable,
			column_default,
			extra,
			generation_expression
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := a.client.DB().QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable, extra string
		var defaultVal, genExpr sql.NullString

		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &defaultVal, &extra, &genExpr); err != nil {
			return nil, err
		}

		col.Nullable = (nullable == "YES")
		if defaultVal.Valid {
			v := defaultVal.String
			col.Default = &v
		}
		if strings.Contains(extra, "GENERATED") {
			col.IsGenerated = true
			if genExpr.Valid {
				col.GenerationExpr = genExpr.String
			}
		}

		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (a *mysqlAnalyzer) extractPrimaryKey(ctx context.Context, schemaName, tableName string) (*schema.PrimaryKey, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := a.client.DB().QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk *schema.PrimaryKey
	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			return nil, err
		}
		if pk == nil {
			pk = &schema.PrimaryKey{Name: "PRIMARY"}
		}
		pk.Columns = append(pk.Columns, columnName)
	}
	return pk, rows.Err()
}

func (a *mysqlAnalyzer) extractIndexes(ctx context.Context, schemaName, tableName string) ([]schema.Index, error) {
	query := `
		SELECT index_name, non_unique, index_type, column_name
		FROM information_schema.statistics
		WHERE table_schema = ?
			AND table_name = ?
			AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index
	`

	rows, err := a.client.DB().QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// One row per indexed column; rows for the same index name accumulate
	// onto the first-seen entry.
	var indexes []schema.Index
	byName := make(map[string]int)
	for rows.Next() {
		var name, indexType, columnName string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &indexType, &columnName); err != nil {
			return nil, err
		}
		i, seen := byName[name]
		if !seen {
			indexes = append(indexes, schema.Index{
				Name:     name,
				IsUnique: nonUnique == 0,
				Method:   strings.ToLower(indexType),
			})
			i = len(indexes) - 1
			byName[name] = i
		}
		indexes[i].Columns = append(indexes[i].Columns, columnName)
	}
	return indexes, rows.Err()
}

func (a *mysqlAnalyzer) extractForeignKeys(ctx context.Context, schemaName, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = kcu.constraint_name
			AND rc.constraint_schema = kcu.table_schema
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`

	rows, err := a.client.DB().QueryContext(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	byName := make(map[string]int)
	for rows.Next() {
		var name, column, refTable, refColumn, deleteRule, updateRule string
		if err := rows.Scan(&name, &column, &refTable, &refColumn, &deleteRule, &updateRule); err != nil {
			return nil, err
		}
		i, seen := byName[name]
		if !seen {
			fks = append(fks, schema.ForeignKey{
				Name:     name,
				RefTable: refTable,
				OnDelete: deleteRule,
				OnUpdate: updateRule,
			})
			i = len(fks) - 1
			byName[name] = i
		}
		fks[i].Columns = append(fks[i].Columns, column)
		fks[i].RefColumns = append(fks[i].RefColumns, refColumn)
	}
	return fks, rows.Err()
}

func (a *mysqlAnalyzer) AnalyzeViews(ctx context.Context, schemaName string) (map[string]*schema.View, error) {
	schemaName = a.schemaName(schemaName)
	query := `
		SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name
	`

	rows, err := a.client.DB().QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list mysql views")
	}
	defer rows.Close()

	views := make(map[string]*schema.View)
	for rows.Next() {
		var name string
		var definition sql.NullString
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to scan mysql view")
		}
		views[name] = &schema.View{Name: name, Definition: definition.String}
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list mysql views")
	}
	return views, nil
}
