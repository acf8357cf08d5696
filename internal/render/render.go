// Package render writes human-readable summaries of a planned migration,
// used by the CLI and for dry-run inspection.
package render

import (
	"fmt"
	"io"

	"github.com/tordrt/schemasync/internal/generator"
	"github.com/tordrt/schemasync/internal/schema"
)

// PlanFormatter writes a schema diff and its generated statements as text
type PlanFormatter struct {
	writer io.Writer
}

// NewPlanFormatter creates a new plan formatter
func NewPlanFormatter(w io.Writer) *PlanFormatter {
	return &PlanFormatter{writer: w}
}

// Format writes a summary of the diff followed by the SQL to be applied
func (f *PlanFormatter) Format(d *schema.SchemaDiff, statements []generator.Statement) error {
	if d.IsEmpty() {
		_, err := fmt.Fprintln(f.writer, "Schema is up to date; nothing to apply.")
		return err
	}

	f.formatDiff(d)

	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintf(f.writer, "Statements (%d):\n", len(statements))
	for _, stmt := range statements {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintf(f.writer, "-- %s\n", stmt.Label)
		if _, err := fmt.Fprintf(f.writer, "%s;\n", stmt.SQL); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlanFormatter) formatDiff(d *schema.SchemaDiff) {
	_, _ = fmt.Fprintln(f.writer, "Planned changes:")

	for _, t := range d.TablesToCreate {
		_, _ = fmt.Fprintf(f.writer, "  + table %s (%d columns)\n", t.Name, len(t.Columns))
	}
	for _, name := range d.TablesToDrop {
		_, _ = fmt.Fprintf(f.writer, "  - table %s\n", name)
	}
	for _, table := range schema.SortedTableNames(d.ColumnsToAdd) {
		for _, col := range d.ColumnsToAdd[table] {
			_, _ = fmt.Fprintf(f.writer, "  + column %s.%s %s\n", table, col.Name, col.DataType)
		}
	}
	for _, table := range schema.SortedTableNames(d.ColumnsToDrop) {
		for _, col := range d.ColumnsToDrop[table] {
			_, _ = fmt.Fprintf(f.writer, "  - column %s.%s\n", table, col)
		}
	}
	for _, table := range schema.SortedTableNames(d.ColumnsToAlter) {
		for _, change := range d.ColumnsToAlter[table] {
			_, _ = fmt.Fprintf(f.writer, "  ~ column %s.%s: %s\n", table, change.ColumnName, describeChange(change))
		}
	}
	for _, table := range schema.SortedTableNames(d.IndexesToCreate) {
		for _, idx := range d.IndexesToCreate[table] {
			kind := "index"
			if idx.IsUnique {
				kind = "unique index"
			}
			_, _ = fmt.Fprintf(f.writer, "  + %s %s on %s\n", kind, idx.Name, table)
		}
	}
	for _, table := range schema.SortedTableNames(d.IndexesToDrop) {
		for _, name := range d.IndexesToDrop[table] {
			_, _ = fmt.Fprintf(f.writer, "  - index %s on %s\n", name, table)
		}
	}
	for _, table := range schema.SortedTableNames(d.ForeignKeysToCreate) {
		for _, fk := range d.ForeignKeysToCreate[table] {
			_, _ = fmt.Fprintf(f.writer, "  + foreign key %s on %s → %s\n", fk.Name, table, fk.RefTable)
		}
	}
	for _, table := range schema.SortedTableNames(d.ForeignKeysToDrop) {
		for _, name := range d.ForeignKeysToDrop[table] {
			_, _ = fmt.Fprintf(f.writer, "  - foreign key %s on %s\n", name, table)
		}
	}
}

func describeChange(c schema.ColumnChange) string {
	switch {
	case c.From.DataType != c.To.DataType:
		return fmt.Sprintf("%s → %s", c.From.DataType, c.To.DataType)
	case c.From.Nullable != c.To.Nullable:
		if c.To.Nullable {
			return "drop NOT NULL"
		}
		return "set NOT NULL"
	case c.From.IsUnique != c.To.IsUnique:
		if c.To.IsUnique {
			return "add unique"
		}
		return "drop unique"
	}
	return "default changed"
}
