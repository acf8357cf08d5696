package generator

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// sqliteGenerator emits SQLite DDL: double-quoted identifiers, types folded
// into SQLite's storage classes, foreign keys inlined into CREATE TABLE.
// Operations SQLite cannot express in place fail with a migration error
// telling the caller to recreate the table.
type sqliteGenerator struct{}

func (g *sqliteGenerator) Dialect() db.Dialect { return db.SQLite }

func (g *sqliteGenerator) quote(name string) string {
	return `"` + name + `"`
}

// translateSQLiteType folds a canonical type into one of SQLite's storage
// classes: INTEGER, REAL, NUMERIC, BLOB or TEXT.
func translateSQLiteType(dataType string) string {
	base, _ := splitType(strings.TrimSuffix(dataType, "[]"))
	switch strings.ToUpper(base) {
	case "SMALLINT", "INTEGER", "INT", "BIGINT", "TINYINT", "INT2", "INT4", "INT8",
		"BOOLEAN", "BOOL", "SERIAL", "BIGSERIAL":
		return "INTEGER"
	case "REAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION":
		return "REAL"
	case "NUMERIC", "DECIMAL":
		return "NUMERIC"
	case "BYTEA", "BLOB":
		return "BLOB"
	}
	return "TEXT"
}

func (g *sqliteGenerator) CreateTable(t *schema.Table) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", g.quote(t.Name))

	var defs []string
	inlinePK := t.PrimaryKey != nil && len(t.PrimaryKey.Columns) == 1
	for _, col := range t.Columns {
		colType := translateSQLiteType(col.DataType)
		def := "    " + g.quote(col.Name) + " " + colType
		if inlinePK && col.Name == t.PrimaryKey.Columns[0] {
			def += " PRIMARY KEY"
			if colType == "INTEGER" {
				def += " AUTOINCREMENT"
			}
		} else {
			if !col.Nullable {
				def += " NOT NULL"
			}
			if col.Default != nil {
				def += " DEFAULT " + *col.Default
			}
		}
		defs = append(defs, def)
	}
	if t.PrimaryKey != nil && !inlinePK {
		defs = append(defs, fmt.Sprintf("    PRIMARY KEY (%s)", quoteJoin(t.PrimaryKey.Columns, g.quote)))
	}
	for _, fk := range t.ForeignKeys {
		clause := fmt.Sprintf("    CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			g.quote(fk.Name), quoteJoin(fk.Columns, g.quote),
			g.quote(fk.RefTable), quoteJoin(fk.RefColumns, g.quote))
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			clause += " ON UPDATE " + fk.OnUpdate
		}
		defs = append(defs, clause)
	}
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n)")

	stmts := []string{b.String()}
	for _, idx := range t.Indexes {
		sql, err := g.CreateIndex(t.Name, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, sql)
	}
	return stmts, nil
}

// TableForeignKeys is empty: CreateTable inlines the constraints, the only
// place SQLite accepts them.
func (g *sqliteGenerator) TableForeignKeys(_ *schema.Table) ([]string, error) {
	return nil, nil
}

func (g *sqliteGenerator) DropTable(name string) (string, error) {
	return "DROP TABLE " + g.quote(name), nil
}

func (g *sqliteGenerator) AddColumn(table string, col schema.Column) (string, error) {
	if !col.Nullable && col.Default == nil {
		return "", syncerr.Newf(syncerr.KindMigration,
			"sqlite cannot add NOT NULL column %s to table %s without a default; recreate the table instead",
			col.Name, table)
	}
	if col.Default != nil && !sqliteConstantDefault(*col.Default) {
		return "", syncerr.Newf(syncerr.KindMigration,
			"sqlite cannot add column %s to table %s with non-constant default %s; recreate the table instead",
			col.Name, table, *col.Default)
	}
	def := g.quote(col.Name) + " " + translateSQLiteType(col.DataType)
	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.Default != nil {
		def += " DEFAULT " + *col.Default
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", g.quote(table), def), nil
}

// sqliteConstantDefault reports whether ADD COLUMN accepts the default
// expression. SQLite only allows constants there: CURRENT_TIME,
// CURRENT_DATE, CURRENT_TIMESTAMP and parenthesized expressions are
// rejected even though CREATE TABLE accepts them.
func sqliteConstantDefault(expr string) bool {
	switch strings.ToUpper(strings.TrimSpace(expr)) {
	case "CURRENT_TIME", "CURRENT_DATE", "CURRENT_TIMESTAMP":
		return false
	}
	return !strings.Contains(expr, "(")
}

func (g *sqliteGenerator) DropColumn(table, column string) (string, error) {
	return "", syncerr.Newf(syncerr.KindMigration,
		"sqlite cannot drop column %s from table %s; recreate the table instead", column, table)
}

func (g *sqliteGenerator) AlterColumn(table string, change schema.ColumnChange) ([]string, error) {
	return nil, syncerr.Newf(syncerr.KindMigration,
		"sqlite cannot alter column %s on table %s in place; recreate the table instead",
		change.ColumnName, table)
}

func (g *sqliteGenerator) CreateIndex(table string, idx schema.Index) (string, error) {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.IsUnique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s (%s)", g.quote(idx.Name), g.quote(table), quoteJoin(idx.Columns, g.quote))
	return b.String(), nil
}

func (g *sqliteGenerator) DropIndex(_, index string) (string, error) {
	return "DROP INDEX " + g.quote(index), nil
}

func (g *sqliteGenerator) AddForeignKey(table string, fk schema.ForeignKey) (string, error) {
	return "", syncerr.Newf(syncerr.KindMigration,
		"sqlite cannot add foreign key %s to existing table %s; recreate the table instead", fk.Name, table)
}

func (g *sqliteGenerator) DropForeignKey(table, constraint string) (string, error) {
	return "", syncerr.Newf(syncerr.KindMigration,
		"sqlite cannot drop foreign key %s from table %s; recreate the table instead", constraint, table)
}
