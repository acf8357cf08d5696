// Package config loads and validates the schemasync TOML configuration.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tordrt/schemasync/internal/syncerr"
)

// Config is the complete schemasync configuration.
type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Migrations  MigrationsConfig  `toml:"migrations"`
	Schema      SchemaConfig      `toml:"schema"`
	Naming      NamingConfig      `toml:"naming"`
	TypeMapping TypeMappingConfig `toml:"type_mapping"`
}

// DatabaseConfig describes the connection to the target database.
type DatabaseConfig struct {
	Driver         string `toml:"driver"` // postgres | mysql | sqlite
	URL            string `toml:"url"`
	PoolSize       int    `toml:"pool_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Schema         string `toml:"schema"` // namespace qualifier, e.g. "public"
}

// MigrationsConfig controls how generated migrations are written and applied.
type MigrationsConfig struct {
	Directory               string `toml:"directory"`
	HistoryTable            string `toml:"history_table"`
	DryRun                  bool   `toml:"dry_run"`
	TransactionPerMigration bool   `toml:"transaction_per_migration"`
}

// SchemaConfig holds the diff and target-schema policy flags.
type SchemaConfig struct {
	AllowColumnRemoval  bool `toml:"allow_column_removal"`
	AllowTableRemoval   bool `toml:"allow_table_removal"`
	DefaultNullable     bool `toml:"default_nullable"`
	IndexForeignKeys    bool `toml:"index_foreign_keys"`
	AddCreatedAtColumn  bool `toml:"add_created_at_column"`
	AddUpdatedAtColumn  bool `toml:"add_updated_at_column"`
}

// NamingConfig holds naming conventions for generated schema objects.
type NamingConfig struct {
	TableStyle        string `toml:"table_style"`  // snake_case | camel_case | pascal_case | kebab_case | screaming_snake_case
	ColumnStyle       string `toml:"column_style"` // same values as TableStyle
	IndexPattern      string `toml:"index_pattern"`
	ConstraintPattern string `toml:"constraint_pattern"`
	PluralizeTables   bool   `toml:"pluralize_tables"`
}

// TypeMappingConfig customizes source-type to column-type resolution.
type TypeMappingConfig struct {
	Custom   []CustomTypeMapping `toml:"custom"`
	Override map[string]string   `toml:"override"`
}

// CustomTypeMapping maps one source field type to a database column type.
type CustomTypeMapping struct {
	SourceType string `toml:"source_type"`
	DBType     string `toml:"db_type"`
}

// Default returns a configuration populated with defaults; the database URL
// still has to be supplied.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			PoolSize:       10,
			TimeoutSeconds: 30,
		},
		Migrations: MigrationsConfig{
			Directory:               "migrations",
			HistoryTable:            "_schemasync_migrations",
			TransactionPerMigration: true,
		},
		Naming: NamingConfig{
			TableStyle:        "snake_case",
			ColumnStyle:       "snake_case",
			IndexPattern:      "ix_{table}_{columns}",
			ConstraintPattern: "fk_{table}_{column}",
			PluralizeTables:   true,
		},
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, syncerr.Wrapf(syncerr.KindConfig, err, "failed to read config file %s", path)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, syncerr.Wrapf(syncerr.KindConfig, err, "failed to parse config file %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for problems that would only surface
// later as confusing runtime failures.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return syncerr.New(syncerr.KindConfig, "database url is required")
	}
	if c.Database.Driver == "" {
		driver, err := DriverFromURL(c.Database.URL)
		if err != nil {
			return err
		}
		c.Database.Driver = driver
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return syncerr.Newf(syncerr.KindConfig, "unsupported database driver: %s", c.Database.Driver)
	}
	if c.Migrations.Directory == "" {
		return syncerr.New(syncerr.KindConfig, "migrations directory is required")
	}
	if c.Migrations.HistoryTable == "" {
		return syncerr.New(syncerr.KindConfig, "migrations history_table is required")
	}
	return nil
}

// DriverFromURL infers the driver from a connection URL scheme.
func DriverFromURL(url string) (string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://"):
		return "postgres", nil
	case strings.HasPrefix(url, "mysql://"):
		return "mysql", nil
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite", nil
	}
	return "", syncerr.Newf(syncerr.KindConfig, "cannot infer driver from database url (must start with postgres://, mysql://, or sqlite://)")
}
