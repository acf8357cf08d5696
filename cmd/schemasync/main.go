package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/tordrt/schemasync"
)

var (
	configFile string
	modelsFile string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "schemasync",
	Short: "Synchronize a database schema with declared models",
	Long: `Schemasync analyzes the current schema of a PostgreSQL, MySQL, or SQLite
database, diffs it against a set of declared model descriptors, and generates
and applies the migrations needed to bring them in line.`,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the changes and SQL that would be applied",
	RunE:  runPlan,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Generate and apply the pending migrations",
	RunE:  runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "schemasync.toml", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&modelsFile, "models", "m", "", "TOML file of model descriptors")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write migration files and log statements without touching the database")
	rootCmd.AddCommand(planCmd, syncCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(ctx context.Context, forceDryRun bool) (*schemasync.Client, error) {
	cfg, err := schemasync.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if forceDryRun {
		cfg.Migrations.DryRun = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client, err := schemasync.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if modelsFile != "" {
		descriptors, err := loadModels(modelsFile)
		if err != nil {
			client.Close()
			return nil, err
		}
		for _, d := range descriptors {
			if err := client.RegisterModel(d); err != nil {
				client.Close()
				return nil, err
			}
		}
	}
	return client, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := newClient(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close database connection: %v\n", err)
		}
	}()

	plan, err := client.Plan(ctx)
	if err != nil {
		return err
	}
	return plan.Render(os.Stdout)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := newClient(ctx, dryRun)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close database connection: %v\n", err)
		}
	}()

	applied, err := client.Sync(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("Schema is up to date; nothing applied.")
		return nil
	}
	for _, a := range applied {
		fmt.Printf("applied %s (%s)\n", a.ID, a.Name)
	}
	return nil
}

// Model descriptor file format: a list of [[model]] tables, each with
// [[model.field]] entries mirroring the descriptor fields.
type modelFile struct {
	Models []modelEntry `toml:"model"`
}

type modelEntry struct {
	Name      string       `toml:"name"`
	TableName string       `toml:"table_name"`
	Comment   string       `toml:"comment"`
	Fields    []fieldEntry `toml:"field"`
}

type fieldEntry struct {
	Name       string    `toml:"name"`
	SourceType string    `toml:"source_type"`
	DBType     string    `toml:"db_type"`
	ColumnName string    `toml:"column_name"`
	Nullable   *bool     `toml:"nullable"`
	PrimaryKey bool      `toml:"primary_key"`
	Unique     bool      `toml:"unique"`
	Default    *string   `toml:"default"`
	Comment    string    `toml:"comment"`
	References *refEntry `toml:"references"`
}

type refEntry struct {
	Model    string `toml:"model"`
	Column   string `toml:"column"`
	OnDelete string `toml:"on_delete"`
	OnUpdate string `toml:"on_update"`
}

func loadModels(path string) ([]schemasync.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file %s: %w", path, err)
	}
	var file modelFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse models file %s: %w", path, err)
	}

	descriptors := make([]schemasync.Descriptor, 0, len(file.Models))
	for _, m := range file.Models {
		d := schemasync.Descriptor{
			Name:      m.Name,
			TableName: m.TableName,
			Comment:   m.Comment,
		}
		for _, f := range m.Fields {
			fd := schemasync.FieldDescriptor{
				Name:       f.Name,
				SourceType: f.SourceType,
				DBType:     f.DBType,
				ColumnName: f.ColumnName,
				Nullable:   f.Nullable,
				PrimaryKey: f.PrimaryKey,
				Unique:     f.Unique,
				Default:    f.Default,
				Comment:    f.Comment,
			}
			if f.References != nil {
				fd.References = &schemasync.ForeignKeyRef{
					Model:    f.References.Model,
					Column:   f.References.Column,
					OnDelete: f.References.OnDelete,
					OnUpdate: f.References.OnUpdate,
				}
			}
			d.Fields = append(d.Fields, fd)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
