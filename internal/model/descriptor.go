// Package model holds the external model descriptors, the per-run registry
// that turns them into a target schema, the type mapper, and the naming
// conventions. The core never inspects source code; callers supply
// descriptors populated by whatever discovery mechanism they use.
package model

// Descriptor describes one model to synchronize into a table.
type Descriptor struct {
	// Name is the model name, e.g. "User". The table name is derived from
	// it via the naming conventions unless TableName is set.
	Name string
	// TableName overrides the derived table name when non-empty.
	TableName string
	Comment   string
	Fields    []FieldDescriptor
}

// FieldDescriptor describes one model field and its column metadata.
type FieldDescriptor struct {
	Name string
	// SourceType is the source-side type name resolved through the type
	// mapper, e.g. "i64" or "String".
	SourceType string
	// DBType is an explicit column type that bypasses type mapping.
	DBType string
	// ColumnName overrides the derived column name when non-empty.
	ColumnName string
	// Nullable overrides the configured default nullability. Primary-key
	// fields are never nullable regardless of this setting.
	Nullable   *bool
	PrimaryKey bool
	Unique     bool
	// Default is a raw SQL default expression.
	Default *string
	Comment string
	// References declares a foreign key from this field.
	References *ForeignKeyRef
}

// ForeignKeyRef points a field at a referenced model and column.
type ForeignKeyRef struct {
	// Model is the referenced model name; the referenced table name is
	// resolved through the registry, falling back to the naming conventions.
	Model string
	// Column is the referenced column name; defaults to "id".
	Column   string
	OnDelete string
	OnUpdate string
}
