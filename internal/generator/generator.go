// Package generator renders a schema diff into ordered, dialect-specific
// DDL statements. Generation is pure: no connection is touched and the
// same diff always renders to the same statements.
package generator

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// Statement is one migration unit: a labelled SQL statement. The label
// becomes part of the migration file name.
type Statement struct {
	Label string
	SQL   string
}

// Generator renders individual DDL operations for one dialect. Operations a
// dialect cannot express in place return a migration error instead of
// emitting invalid SQL.
type Generator interface {
	Dialect() db.Dialect

	// CreateTable renders the CREATE TABLE statement plus any follow-up
	// statements (secondary indexes, comments). Foreign keys are rendered
	// separately via TableForeignKeys unless the dialect requires them
	// inline.
	CreateTable(t *schema.Table) ([]string, error)
	// TableForeignKeys renders the foreign-key statements for a freshly
	// created table, empty when CreateTable already inlined them.
	TableForeignKeys(t *schema.Table) ([]string, error)
	DropTable(name string) (string, error)

	AddColumn(table string, col schema.Column) (string, error)
	DropColumn(table, column string) (string, error)
	// AlterColumn renders the statements moving a column from its current
	// to its target definition. A change covered elsewhere (uniqueness is
	// carried by the index diff) may render to nothing.
	AlterColumn(table string, change schema.ColumnChange) ([]string, error)

	CreateIndex(table string, idx schema.Index) (string, error)
	DropIndex(table, index string) (string, error)

	AddForeignKey(table string, fk schema.ForeignKey) (string, error)
	DropForeignKey(table, constraint string) (string, error)
}

// New returns the generator for a dialect.
func New(dialect db.Dialect) (Generator, error) {
	switch dialect {
	case db.Postgres:
		return &postgresGenerator{}, nil
	case db.MySQL:
		return &mysqlGenerator{}, nil
	case db.SQLite:
		return &sqliteGenerator{}, nil
	}
	return nil, syncerr.Newf(syncerr.KindConfig, "unsupported dialect: %s", dialect)
}

// Statements renders a full diff in dependency-safe order: table creations,
// foreign-key drops, table drops, column additions, column drops, column
// alterations, index drops, index creations, foreign-key creations.
// Foreign-key drops precede table drops so a constraint referencing a
// dropped table never outlives it, and index drops precede index creations
// so a drifted index recreated under the same name drops first.
func Statements(d *schema.SchemaDiff, dialect db.Dialect) ([]Statement, error) {
	g, err := New(dialect)
	if err != nil {
		return nil, err
	}

	var out []Statement
	add := func(label, sql string) {
		if sql != "" {
			out = append(out, Statement{Label: label, SQL: sql})
		}
	}

	// Create-table foreign keys are deferred until every new table exists,
	// so creation order between new tables never matters.
	var deferredFKs []Statement
	for _, t := range d.TablesToCreate {
		stmts, err := g.CreateTable(t)
		if err != nil {
			return nil, err
		}
		for i, sql := range stmts {
			label := "create_table_" + t.Name
			if i > 0 {
				label = fmt.Sprintf("%s_%d", label, i)
			}
			add(label, sql)
		}
		fkStmts, err := g.TableForeignKeys(t)
		if err != nil {
			return nil, err
		}
		for _, sql := range fkStmts {
			deferredFKs = append(deferredFKs, Statement{Label: "add_foreign_keys_" + t.Name, SQL: sql})
		}
	}
	out = append(out, deferredFKs...)

	for _, table := range schema.SortedTableNames(d.ForeignKeysToDrop) {
		for _, name := range d.ForeignKeysToDrop[table] {
			sql, err := g.DropForeignKey(table, name)
			if err != nil {
				return nil, err
			}
			add("drop_foreign_key_"+table+"_"+name, sql)
		}
	}

	for _, name := range d.TablesToDrop {
		sql, err := g.DropTable(name)
		if err != nil {
			return nil, err
		}
		add("drop_table_"+name, sql)
	}

	for _, table := range schema.SortedTableNames(d.ColumnsToAdd) {
		for _, col := range d.ColumnsToAdd[table] {
			sql, err := g.AddColumn(table, col)
			if err != nil {
				return nil, err
			}
			add("add_column_"+table+"_"+col.Name, sql)
		}
	}

	for _, table := range schema.SortedTableNames(d.ColumnsToDrop) {
		for _, col := range d.ColumnsToDrop[table] {
			sql, err := g.DropColumn(table, col)
			if err != nil {
				return nil, err
			}
			add("drop_column_"+table+"_"+col, sql)
		}
	}

	for _, table := range schema.SortedTableNames(d.ColumnsToAlter) {
		for _, change := range d.ColumnsToAlter[table] {
			stmts, err := g.AlterColumn(table, change)
			if err != nil {
				return nil, err
			}
			add("alter_column_"+table+"_"+change.ColumnName, strings.Join(stmts, "\n"))
		}
	}

	for _, table := range schema.SortedTableNames(d.IndexesToDrop) {
		for _, name := range d.IndexesToDrop[table] {
			sql, err := g.DropIndex(table, name)
			if err != nil {
				return nil, err
			}
			add("drop_index_"+name, sql)
		}
	}

	for _, table := range schema.SortedTableNames(d.IndexesToCreate) {
		for _, idx := range d.IndexesToCreate[table] {
			sql, err := g.CreateIndex(table, idx)
			if err != nil {
				return nil, err
			}
			add("create_index_"+idx.Name, sql)
		}
	}

	for _, table := range schema.SortedTableNames(d.ForeignKeysToCreate) {
		for _, fk := range d.ForeignKeysToCreate[table] {
			sql, err := g.AddForeignKey(table, fk)
			if err != nil {
				return nil, err
			}
			add("add_foreign_key_"+table+"_"+fk.Name, sql)
		}
	}

	return out, nil
}

// TranslateType maps a canonical column type to its native form for a
// dialect. Postgres is the canonical dialect, so its types pass through.
// Callers use this to normalize a target schema before diffing it against
// an analyzed one, so canonical and native spellings never produce a
// spurious alteration.
func TranslateType(dialect db.Dialect, dataType string) string {
	switch dialect {
	case db.MySQL:
		return translateMySQLType(dataType)
	case db.SQLite:
		return translateSQLiteType(dataType)
	}
	return dataType
}

// splitType separates a type name from its parenthesized parameters:
// "VARCHAR(255)" yields ("VARCHAR", "(255)").
func splitType(dataType string) (base, params string) {
	if i := strings.Index(dataType, "("); i != -1 {
		return strings.TrimSpace(dataType[:i]), dataType[i:]
	}
	return dataType, ""
}

// escapeSQLString doubles single quotes for use inside a literal.
func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func quoteJoin(cols []string, quote func(string) string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
