package db

import (
	"context"
	"fmt"

	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// postgresAnalyzer introspects PostgreSQL through information_schema and the
// pg_catalog tables.
type postgresAnalyzer struct {
	client *PostgresClient
}

func (a *postgresAnalyzer) AnalyzeSchema(ctx context.Context, schemaName string) (*schema.Schema, error) {
	if schemaName == "" {
		schemaName = "public"
	}
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

func (a *postgresAnalyzer) AnalyzeTables(ctx context.Context, schemaName string) (map[string]*schema.Table, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	names, err := a.tableNames(ctx, schemaName)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list postgres tables")
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

func (a *postgresAnalyzer) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := a.client.Pool().Query(ctx, query, schemaName)
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

func (a *postgresAnalyzer) analyzeTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
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

func (a *postgresAnalyzer) extractColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			character_maximum_length,
			is_generated,
			generation_expression
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := a.client.Pool().Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable, generated string
		var defaultVal, genExpr *string
		var maxLength *int

		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &defaultVal, &maxLength, &generated, &genExpr); err != nil {
			return nil, err
		}

		col.DataType = normalizePostgresType(col.DataType, maxLength)
		col.Nullable = (nullable == "YES")
		col.Default = defaultVal
		if generated == "ALWAYS" {
			col.IsGenerated = true
			if genExpr != nil {
				col.GenerationExpr = *genExpr
			}
		}

		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// normalizePostgresType folds the length modifier back into the reported
// data type so "character varying" with max length 255 becomes VARCHAR(255),
// matching what the generator emits.
func normalizePostgresType(dataType string, maxLength *int) string {
	if maxLength == nil {
		return dataType
	}
	switch dataType {
	case "character varying":
		return fmt.Sprintf("VARCHAR(%d)", *maxLength)
	case "character":
		return fmt.Sprintf("CHAR(%d)", *maxLength)
	}
	return dataType
}

func (a *postgresAnalyzer) extractPrimaryKey(ctx context.Context, schemaName, tableName string) (*schema.PrimaryKey, error) {
	query := `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := a.client.Pool().Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk *schema.PrimaryKey
	for rows.Next() {
		var constraintName, columnName string
		if err := rows.Scan(&constraintName, &columnName); err != nil {
			return nil, err
		}
		if pk == nil {
			pk = &schema.PrimaryKey{Name: constraintName}
		}
		pk.Columns = append(pk.Columns, columnName)
	}
	return pk, rows.Err()
}

func (a *postgresAnalyzer) extractIndexes(ctx context.Context, schemaName, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			am.amname AS method,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique, am.amname
		ORDER BY i.relname
	`

	rows, err := a.client.Pool().Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.Method, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (a *postgresAnalyzer) extractForeignKeys(ctx context.Context, schemaName, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints AS rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := a.client.Pool().Query(ctx, query, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Multi-column constraints arrive one row per column pair; rows for the
	// same constraint name accumulate onto the first-seen entry.
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

func (a *postgresAnalyzer) AnalyzeViews(ctx context.Context, schemaName string) (map[string]*schema.View, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	views := make(map[string]*schema.View)

	query := `
		SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name
	`
	rows, err := a.client.Pool().Query(ctx, query, schemaName)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list postgres views")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var definition *string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to scan postgres view")
		}
		v := &schema.View{Name: name}
		if definition != nil {
			v.Definition = *definition
		}
		views[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list postgres views")
	}

	matQuery := `
		SELECT matviewname, definition
		FROM pg_matviews
		WHERE schemaname = $1
		ORDER BY matviewname
	`
	matRows, err := a.client.Pool().Query(ctx, matQuery, schemaName)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list postgres materialized views")
	}
	defer matRows.Close()

	for matRows.Next() {
		var name, definition string
		if err := matRows.Scan(&name, &definition); err != nil {
			return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to scan postgres materialized view")
		}
		views[name] = &schema.View{Name: name, Definition: definition, IsMaterialized: true}
	}
	if err := matRows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list postgres materialized views")
	}

	return views, nil
}
