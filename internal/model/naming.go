package model

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/tordrt/schemasync/internal/config"
)

// ApplyCase renders a name in the given case style. Unrecognized styles
// fall back to snake_case.
func ApplyCase(style, name string) string {
	switch style {
	case "camel_case":
		return strcase.ToLowerCamel(name)
	case "pascal_case":
		return strcase.ToCamel(name)
	case "kebab_case":
		return strcase.ToKebab(name)
	case "screaming_snake_case":
		return strcase.ToScreamingSnake(name)
	default:
		return strcase.ToSnake(name)
	}
}

// TableName derives a table name from a model name: case style plus
// optional pluralization.
func TableName(cfg config.NamingConfig, modelName string) string {
	name := ApplyCase(cfg.TableStyle, modelName)
	if cfg.PluralizeTables {
		name = inflection.Plural(name)
	}
	return name
}

// ColumnName derives a column name from a field name.
func ColumnName(cfg config.NamingConfig, fieldName string) string {
	return ApplyCase(cfg.ColumnStyle, fieldName)
}

// IndexName renders an index name from the configured pattern. {table} and
// {columns} (underscore-joined) placeholders are substituted; {column} is
// the first column for single-column patterns.
func IndexName(pattern, table string, columns []string) string {
	name := strings.ReplaceAll(pattern, "{table}", table)
	name = strings.ReplaceAll(name, "{columns}", strings.Join(columns, "_"))
	if len(columns) > 0 {
		name = strings.ReplaceAll(name, "{column}", columns[0])
	}
	return name
}

// ConstraintName renders a constraint name from the configured pattern.
func ConstraintName(pattern, table, column string) string {
	name := strings.ReplaceAll(pattern, "{table}", table)
	name = strings.ReplaceAll(name, "{column}", column)
	name = strings.ReplaceAll(name, "{columns}", column)
	return name
}

// TruncateIdentifier shortens a name exceeding maxLen to a prefix plus an
// 8-character hash fragment of the full name, so two different long names
// never shorten to the same identifier.
func TruncateIdentifier(name string, maxLen int) string {
	if len(name) <= maxLen {
		return name
	}
	fragment := fmt.Sprintf("%08x", uint32(xxhash.Sum64String(name)))
	return name[:maxLen-len(fragment)-1] + "_" + fragment
}
