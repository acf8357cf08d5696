package model

import (
	"strings"
	"testing"

	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/syncerr"
)

func TestTypeMapperDefaults(t *testing.T) {
	m := NewTypeMapper(config.TypeMappingConfig{})

	tests := []struct {
		source string
		want   string
	}{
		{"i32", "INTEGER"},
		{"i64", "BIGINT"},
		{"String", "VARCHAR(255)"},
		{"bool", "BOOLEAN"},
		{"Uuid", "UUID"},
		{"DateTime", "TIMESTAMP WITH TIME ZONE"},
		{"Decimal", "NUMERIC(20,6)"},
	}
	for _, tt := range tests {
		got, err := m.Resolve(tt.source)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", tt.source, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%s) = %s, want %s", tt.source, got, tt.want)
		}
	}
}

func TestTypeMapperCustomPrecedence(t *testing.T) {
	m := NewTypeMapper(config.TypeMappingConfig{
		Custom: []config.CustomTypeMapping{
			{SourceType: "String", DBType: "TEXT"},
		},
		Override: map[string]string{
			"String": "VARCHAR(1024)",
			"bool":   "SMALLINT",
		},
	})

	// custom beats override beats builtin
	if got, _ := m.Resolve("String"); got != "TEXT" {
		t.Errorf("custom mapping must win, got %s", got)
	}
	if got, _ := m.Resolve("bool"); got != "SMALLINT" {
		t.Errorf("override must beat builtin, got %s", got)
	}
	if got, _ := m.Resolve("i32"); got != "INTEGER" {
		t.Errorf("builtin fallback broken, got %s", got)
	}
}

func TestTypeMapperUnknownType(t *testing.T) {
	m := NewTypeMapper(config.TypeMappingConfig{})
	_, err := m.Resolve("MyWeirdType")
	if err == nil {
		t.Fatal("expected an error for an unmapped type")
	}
	if !syncerr.IsKind(err, syncerr.KindTypeMapping) {
		t.Errorf("expected a type-mapping error, got %v", err)
	}
	if !strings.Contains(err.Error(), "MyWeirdType") {
		t.Errorf("error must name the unresolved type, got %q", err.Error())
	}
}
