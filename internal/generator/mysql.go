package generator

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/model"
	"github.com/tordrt/schemasync/internal/schema"
)

const mysqlMaxIdentifier = 64

// mysqlGenerator emits MySQL DDL: backtick-quoted identifiers, canonical
// types translated to MySQL natives, comments inlined into the table
// definition.
type mysqlGenerator struct{}

func (g *mysqlGenerator) Dialect() db.Dialect { return db.MySQL }

func (g *mysqlGenerator) quote(name string) string {
	return "`" + model.TruncateIdentifier(name, mysqlMaxIdentifier) + "`"
}

// translateMySQLType maps a canonical column type to its MySQL equivalent,
// preserving length and precision parameters. Array types degrade to JSON;
// unknown types degrade to TEXT.
func translateMySQLType(dataType string) string {
	if strings.HasSuffix(dataType, "[]") {
		return "JSON"
	}
	base, params := splitType(dataType)
	switch strings.ToUpper(base) {
	case "BOOLEAN", "BOOL":
		return "TINYINT(1)"
	case "JSON", "JSONB":
		return "JSON"
	case "UUID":
		return "CHAR(36)"
	case "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ", "TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMP":
		return "TIMESTAMP"
	case "BYTEA":
		return "BLOB"
	case "DOUBLE PRECISION":
		return "DOUBLE"
	case "REAL":
		return "FLOAT"
	case "SMALLINT":
		return "SMALLINT"
	case "INTEGER", "INT", "INT4":
		return "INT"
	case "BIGINT", "INT8":
		return "BIGINT"
	case "SERIAL":
		return "INT AUTO_INCREMENT"
	case "BIGSERIAL":
		return "BIGINT AUTO_INCREMENT"
	case "VARCHAR", "CHARACTER VARYING":
		if params == "" {
			params = "(255)"
		}
		return "VARCHAR" + params
	case "CHAR", "CHARACTER":
		return "CHAR" + params
	case "NUMERIC", "DECIMAL":
		return "DECIMAL" + params
	case "TEXT":
		return "TEXT"
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	}
	return "TEXT"
}

func (g *mysqlGenerator) CreateTable(t *schema.Table) ([]string, error) {
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
	// Unique indexes inline as UNIQUE KEY entries; non-unique indexes are
	// separate statements after the table exists.
	var secondary []schema.Index
	for _, idx := range t.Indexes {
		if idx.IsUnique {
			defs = append(defs, fmt.Sprintf("    UNIQUE KEY %s (%s)", g.quote(idx.Name), quoteJoin(idx.Columns, g.quote)))
		} else {
			secondary = append(secondary, idx)
		}
	}
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci")
	if t.Comment != "" {
		fmt.Fprintf(&b, " COMMENT='%s'", escapeSQLString(t.Comment))
	}

	stmts := []string{b.String()}
	for _, idx := range secondary {
		sql, err := g.CreateIndex(t.Name, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, sql)
	}
	return stmts, nil
}

func (g *mysqlGenerator) columnDef(col schema.Column) string {
	def := g.quote(col.Name) + " " + translateMySQLType(col.DataType)
	if col.IsGenerated && col.GenerationExpr != "" {
		def += fmt.Sprintf(" GENERATED ALWAYS AS (%s) STORED", col.GenerationExpr)
	} else {
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Default != nil {
			def += " DEFAULT " + *col.Default
		}
	}
	if col.Comment != "" {
		def += fmt.Sprintf(" COMMENT '%s'", escapeSQLString(col.Comment))
	}
	return def
}

func (g *mysqlGenerator) TableForeignKeys(t *schema.Table) ([]string, error) {
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

func (g *mysqlGenerator) DropTable(name string) (string, error) {
	return "DROP TABLE " + g.quote(name), nil
}

func (g *mysqlGenerator) AddColumn(table string, col schema.Column) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", g.quote(table), g.columnDef(col)), nil
}

func (g *mysqlGenerator) DropColumn(table, column string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.quote(table), g.quote(column)), nil
}

// AlterColumn emits a single MODIFY COLUMN carrying the full target
// definition. A uniqueness-only change renders to nothing; the index diff
// carries it.
func (g *mysqlGenerator) AlterColumn(table string, change schema.ColumnChange) ([]string, error) {
	sameType := schema.DataTypesEqual(change.From.DataType, change.To.DataType)
	sameNull := change.From.Nullable == change.To.Nullable
	sameDefault := schema.DefaultsEqual(change.From.Default, change.To.Default)
	if sameType && sameNull && sameDefault {
		return nil, nil
	}
	return []string{
		fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", g.quote(table), g.columnDef(change.To)),
	}, nil
}

func (g *mysqlGenerator) CreateIndex(table string, idx schema.Index) (string, error) {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.IsUnique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s (%s)", g.quote(idx.Name), g.quote(table), quoteJoin(idx.Columns, g.quote))
	return b.String(), nil
}

func (g *mysqlGenerator) DropIndex(table, index string) (string, error) {
	return fmt.Sprintf("DROP INDEX %s ON %s", g.quote(index), g.quote(table)), nil
}

func (g *mysqlGenerator) AddForeignKey(table string, fk schema.ForeignKey) (string, error) {
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

func (g *mysqlGenerator) DropForeignKey(table, constraint string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", g.quote(table), g.quote(constraint)), nil
}
