package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// sqliteAnalyzer introspects SQLite through sqlite_master and the table
// pragmas. SQLite has no schema namespaces, so the schema name is ignored.
type sqliteAnalyzer struct {
	client *SQLiteClient
}

func (a *sqliteAnalyzer) AnalyzeSchema(ctx context.Context, schemaName string) (*schema.Schema, error) {
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

func (a *sqliteAnalyzer) AnalyzeTables(ctx context.Context, _ string) (map[string]*schema.Table, error) {
	names, err := a.tableNames(ctx)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list sqlite tables")
	}

	tables := make(map[string]*schema.Table, len(names))
	for _, name := range names {
		table, err := a.analyzeTable(ctx, name)
		if err != nil {
			return nil, syncerr.Wrapf(syncerr.KindAnalysis, err, "failed to analyze table %s", name)
		}
		tables[name] = table
	}
	return tables, nil
}

func (a *sqliteAnalyzer) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := a.client.DB().QueryContext(ctx, query)
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

func (a *sqliteAnalyzer) analyzeTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := schema.NewTable(tableName)

	columns, pk, err := a.extractColumns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	table.PrimaryKey = pk

	indexes, err := a.extractIndexes(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	fks, err := a.extractForeignKeys(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.ForeignKeys = fks

	markUniqueColumns(table)
	return table, nil
}

// extractColumns reads PRAGMA table_info, which also carries the primary-key
// ordinal per column.
func (a *sqliteAnalyzer) extractColumns(ctx context.Context, tableName string) ([]schema.Column, *schema.PrimaryKey, error) {
	query := fmt.Sprintf(`PRAGMA table_info(%q)`, tableName)

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type pkColumn struct {
		ordinal int
		name    string
	}
	var columns []schema.Column
	var pkColumns []pkColumn
	for rows.Next() {
		var cid, notNull, pkOrdinal int
		var col schema.Column
		var defaultVal sql.NullString

		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &defaultVal, &pkOrdinal); err != nil {
			return nil, nil, err
		}

		// Primary-key columns are effectively NOT NULL even when the pragma
		// reports them nullable.
		col.Nullable = (notNull == 0) && pkOrdinal == 0
		if defaultVal.Valid {
			v := defaultVal.String
			col.Default = &v
		}

		columns = append(columns, col)
		if pkOrdinal > 0 {
			pkColumns = append(pkColumns, pkColumn{ordinal: pkOrdinal, name: col.Name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var pk *schema.PrimaryKey
	if len(pkColumns) > 0 {
		sort.Slice(pkColumns, func(i, j int) bool { return pkColumns[i].ordinal < pkColumns[j].ordinal })
		pk = &schema.PrimaryKey{}
		for _, c := range pkColumns {
			pk.Columns = append(pk.Columns, c.name)
		}
	}
	return columns, pk, nil
}

func (a *sqliteAnalyzer) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := fmt.Sprintf(`PRAGMA index_list(%q)`, tableName)

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		// Implicit indexes backing inline constraints are not part of the
		// declared schema.
		if len(name) >= 16 && name[:16] == "sqlite_autoindex" {
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, entry := range entries {
		columns, err := a.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, schema.Index{
			Name:     entry.name,
			Columns:  columns,
			IsUnique: entry.unique,
		})
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes, nil
}

func (a *sqliteAnalyzer) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := fmt.Sprintf(`PRAGMA index_info(%q)`, indexName)

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexColumn struct {
		seqno int
		name  string
	}
	var cols []indexColumn
	for rows.Next() {
		var c indexColumn
		var cid int
		var name sql.NullString
		if err := rows.Scan(&c.seqno, &cid, &name); err != nil {
			return nil, err
		}
		c.name = name.String
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].seqno < cols[j].seqno })
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}

// extractForeignKeys reads PRAGMA foreign_key_list. The pragma does not
// expose constraint names, so one is synthesized from the table and the
// first local column, matching the default constraint naming convention.
func (a *sqliteAnalyzer) extractForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := fmt.Sprintf(`PRAGMA foreign_key_list(%q)`, tableName)

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Multi-column constraints share an id and arrive one row per column
	// pair with an incrementing seq.
	var fks []schema.ForeignKey
	byID := make(map[int]int)
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		i, seen := byID[id]
		if !seen {
			fks = append(fks, schema.ForeignKey{
				Name:     fmt.Sprintf("fk_%s_%s", tableName, from),
				RefTable: refTable,
				OnDelete: onDelete,
				OnUpdate: onUpdate,
			})
			i = len(fks) - 1
			byID[id] = i
		}
		fks[i].Columns = append(fks[i].Columns, from)
		fks[i].RefColumns = append(fks[i].RefColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(fks, func(i, j int) bool { return fks[i].Name < fks[j].Name })
	return fks, nil
}

func (a *sqliteAnalyzer) AnalyzeViews(ctx context.Context, _ string) (map[string]*schema.View, error) {
	query := `
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'view'
		ORDER BY name
	`

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list sqlite views")
	}
	defer rows.Close()

	views := make(map[string]*schema.View)
	for rows.Next() {
		var name string
		var definition sql.NullString
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to scan sqlite view")
		}
		views[name] = &schema.View{Name: name, Definition: definition.String}
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.KindAnalysis, err, "failed to list sqlite views")
	}
	return views, nil
}
