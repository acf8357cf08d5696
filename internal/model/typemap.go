package model

import (
	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// builtinTypes maps well-known source type names to canonical column types.
// Canonical types are Postgres-flavored; the generator translates them for
// the other dialects.
var builtinTypes = map[string]string{
	"i8":  "SMALLINT",
	"i16": "SMALLINT",
	"i32": "INTEGER",
	"u8":  "INTEGER",
	"u16": "INTEGER",
	"u32": "INTEGER",
	"int": "INTEGER",
	"i64": "BIGINT",
	"u64": "BIGINT",

	"f32":     "REAL",
	"float32": "REAL",
	"f64":     "DOUBLE PRECISION",
	"float64": "DOUBLE PRECISION",

	"bool": "BOOLEAN",

	"String": "VARCHAR(255)",
	"str":    "VARCHAR(255)",
	"string": "VARCHAR(255)",

	"bytes":  "BYTEA",
	"[]byte": "BYTEA",

	"DateTime":      "TIMESTAMP WITH TIME ZONE",
	"Timestamptz":   "TIMESTAMP WITH TIME ZONE",
	"NaiveDateTime": "TIMESTAMP",
	"Timestamp":     "TIMESTAMP",
	"NaiveDate":     "DATE",
	"Date":          "DATE",
	"NaiveTime":     "TIME",
	"Time":          "TIME",

	"Uuid": "UUID",
	"UUID": "UUID",

	"Decimal": "NUMERIC(20,6)",

	"Json":  "JSONB",
	"JSON":  "JSONB",
	"Value": "JSONB",
}

// TypeMapper resolves source field types to canonical column types.
// Resolution order: custom mappings, then configured overrides, then the
// built-in defaults.
type TypeMapper struct {
	custom   map[string]string
	override map[string]string
}

// NewTypeMapper builds a mapper from the type-mapping configuration.
func NewTypeMapper(cfg config.TypeMappingConfig) *TypeMapper {
	custom := make(map[string]string, len(cfg.Custom))
	for _, m := range cfg.Custom {
		custom[m.SourceType] = m.DBType
	}
	return &TypeMapper{custom: custom, override: cfg.Override}
}

// Resolve maps a source type name to a column type, or fails with a
// type-mapping error naming the unresolved type.
func (m *TypeMapper) Resolve(sourceType string) (string, error) {
	if t, ok := m.custom[sourceType]; ok {
		return t, nil
	}
	if t, ok := m.override[sourceType]; ok {
		return t, nil
	}
	if t, ok := builtinTypes[sourceType]; ok {
		return t, nil
	}
	return "", syncerr.Newf(syncerr.KindTypeMapping, "no type mapping for source type %q", sourceType)
}
