package model

import (
	"strings"
	"testing"

	"github.com/tordrt/schemasync/internal/config"
)

func TestTableName(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.NamingConfig
		model string
		want  string
	}{
		{"snake plural", config.NamingConfig{TableStyle: "snake_case", PluralizeTables: true}, "UserProfile", "user_profiles"},
		{"snake singular", config.NamingConfig{TableStyle: "snake_case"}, "UserProfile", "user_profile"},
		{"pascal", config.NamingConfig{TableStyle: "pascal_case"}, "user_profile", "UserProfile"},
		{"screaming", config.NamingConfig{TableStyle: "screaming_snake_case"}, "UserProfile", "USER_PROFILE"},
		{"unknown style falls back to snake", config.NamingConfig{TableStyle: "bogus"}, "UserProfile", "user_profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TableName(tt.cfg, tt.model); got != tt.want {
				t.Errorf("TableName(%s) = %s, want %s", tt.model, got, tt.want)
			}
		})
	}
}

func TestIndexAndConstraintNames(t *testing.T) {
	got := IndexName("ix_{table}_{columns}", "users", []string{"email", "status"})
	if got != "ix_users_email_status" {
		t.Errorf("IndexName = %s", got)
	}
	got = ConstraintName("fk_{table}_{column}", "posts", "user_id")
	if got != "fk_posts_user_id" {
		t.Errorf("ConstraintName = %s", got)
	}
}

func TestTruncateIdentifier(t *testing.T) {
	short := "ix_users_email"
	if got := TruncateIdentifier(short, 63); got != short {
		t.Errorf("short names must pass through, got %s", got)
	}

	long := "ix_" + strings.Repeat("customer_order_line_items_", 4) + "created_at"
	truncated := TruncateIdentifier(long, 63)
	if len(truncated) != 63 {
		t.Errorf("truncated length = %d, want 63", len(truncated))
	}
	if !strings.HasPrefix(long, truncated[:len(truncated)-9]) {
		t.Errorf("truncated name must keep the original prefix: %s", truncated)
	}

	// two different long names sharing a prefix must not collide
	other := long + "_desc"
	if TruncateIdentifier(other, 63) == truncated {
		t.Error("different long names truncated to the same identifier")
	}

	// deterministic
	if TruncateIdentifier(long, 63) != truncated {
		t.Error("truncation must be deterministic")
	}
}
