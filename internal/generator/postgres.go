package generator

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/model"
	"github.com/tordrt/schemasync/internal/schema"
)

const postgresMaxIdentifier = 63

// postgresGenerator emits PostgreSQL DDL. Identifiers are left unquoted and
// canonical types pass through untranslated.
type postgresGenerator struct{}

func (g *postgresGenerator) Dialect() db.Dialect { return db.Postgres }

func (g *postgresGenerator) quote(name string) string {
	return model.TruncateIdentifier(name, postgresMaxIdentifier)
}

func (g *postgresGenerator) CreateTable(t *schema.Table) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", g.quote(t.Name))

	var defs []string
	inlinePK := t.PrimaryKey != nil && len(t.PrimaryKey.Columns) == 1
	for _, col := range t.Columns {
		def := "    " + g.columnDef(col)
		if inlinePK && col.Name == t.PrimaryKey.Columns[0] {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	if t.PrimaryKey != nil && !inlinePK {
		defs = append(defs, fmt.Sprintf("    PRIMARY KEY (%s)", quoteJoin(t.PrimaryKey.Columns, g.quote)))
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
	stmts = append(stmts, g.commentStatements(t)...)
	return stmts, nil
}

func (g *postgresGenerator) columnDef(col schema.Column) string {
	def := g.quote(col.Name) + " " + col.DataType
	if col.IsGenerated && col.GenerationExpr != "" {
		return def + fmt.Sprintf(" GENERATED ALWAYS AS (%s) STORED", col.GenerationExpr)
	}
	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.Default != nil {
		def += " DEFAULT " + *col.Default
	}
	return def
}

func (g *postgresGenerator) commentStatements(t *schema.Table) []string {
	var stmts []string
	if t.Comment != "" {
		stmts = append(stmts, fmt.Sprintf("COMMENT ON TABLE %s IS '%s'", g.quote(t.Name), escapeSQLString(t.Comment)))
	}
	for _, col := range t.Columns {
		if col.Comment != "" {
			stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS '%s'",
				g.quote(t.Name), g.quote(col.Name), escapeSQLString(col.Comment)))
		}
	}
	return stmts
}

func (g *postgresGenerator) TableForeignKeys(t *schema.Table) ([]string, error) {
	var stmts []string
	for _, fk := range t.ForeignKeys {
		sql, err := g.AddForeignKey(t.Name, fk)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, sql)
	}
	return stmts, nil
}

func (g *postgresGenerator) DropTable(name string) (string, error) {
	return "DROP TABLE " + g.quote(name), nil
}

func (g *postgresGenerator) AddColumn(table string, col schema.Column) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", g.quote(table), g.columnDef(col)), nil
}

func (g *postgresGenerator) DropColumn(table, column string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.quote(table), g.quote(column)), nil
}

// AlterColumn emits one targeted statement per changed property. A
// uniqueness-only change renders to nothing here; the index diff carries it.
func (g *postgresGenerator) AlterColumn(table string, change schema.ColumnChange) ([]string, error) {
	tbl := g.quote(table)
	col := g.quote(change.ColumnName)
	var stmts []string
	if !schema.DataTypesEqual(change.From.DataType, change.To.DataType) {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
			tbl, col, change.To.DataType, col, change.To.DataType))
	}
	if change.From.Nullable != change.To.Nullable {
		if change.To.Nullable {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", tbl, col))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", tbl, col))
		}
	}
	if !schema.DefaultsEqual(change.From.Default, change.To.Default) {
		if change.To.Default != nil {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", tbl, col, *change.To.Default))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", tbl, col))
		}
	}
	return stmts, nil
}

func (g *postgresGenerator) CreateIndex(table string, idx schema.Index) (string, error) {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.IsUnique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s", g.quote(idx.Name), g.quote(table))
	if idx.Method != "" {
		fmt.Fprintf(&b, " USING %s", idx.Method)
	}
	fmt.Fprintf(&b, " (%s)", quoteJoin(idx.Columns, g.quote))
	return b.String(), nil
}

func (g *postgresGenerator) DropIndex(_, index string) (string, error) {
	return "DROP INDEX " + g.quote(index), nil
}

func (g *postgresGenerator) AddForeignKey(table string, fk schema.ForeignKey) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		g.quote(table), g.quote(fk.Name), quoteJoin(fk.Columns, g.quote),
		g.quote(fk.RefTable), quoteJoin(fk.RefColumns, g.quote))
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + fk.OnUpdate)
	}
	return b.String(), nil
}

func (g *postgresGenerator) DropForeignKey(table, constraint string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", g.quote(table), g.quote(constraint)), nil
}
