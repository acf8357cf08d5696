// Package schemasync synchronizes a live database schema with a set of
// registered model descriptors: it analyzes the current schema, diffs it
// against the target built from the models, generates dialect-specific
// migration SQL, and applies it with full history tracking.
package schemasync

import (
	"context"
	"io"
	"log/slog"

	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/generator"
	"github.com/tordrt/schemasync/internal/migrate"
	"github.com/tordrt/schemasync/internal/model"
	"github.com/tordrt/schemasync/internal/render"
	"github.com/tordrt/schemasync/internal/schema"
)

// Aliases so callers can work with the library without reaching into
// internal packages.
type (
	Config          = config.Config
	Descriptor      = model.Descriptor
	FieldDescriptor = model.FieldDescriptor
	ForeignKeyRef   = model.ForeignKeyRef
	Statement       = generator.Statement
	Applied         = migrate.Applied
	Schema          = schema.Schema
	SchemaDiff      = schema.SchemaDiff
)

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() *Config { return config.Default() }

// LoadConfig reads and validates a TOML configuration file.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// Client drives one analyze → diff → generate → apply cycle. It is not safe
// for concurrent use; construct one per run.
type Client struct {
	cfg      *config.Config
	client   db.Client
	analyzer db.Analyzer
	registry *model.Registry
	logger   *slog.Logger
}

// New validates the configuration, connects to the configured database and
// returns a ready client. A nil logger falls back to slog.Default().
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	analyzer, err := db.NewAnalyzer(client)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		client:   client,
		analyzer: analyzer,
		registry: model.NewRegistry(cfg),
		logger:   logger,
	}, nil
}

// Close releases the database connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// RegisterModel adds a model descriptor to this client's registry.
func (c *Client) RegisterModel(d Descriptor) error {
	return c.registry.Register(d)
}

// Analyze introspects the live database into the canonical schema model.
func (c *Client) Analyze(ctx context.Context) (*Schema, error) {
	return c.analyzer.AnalyzeSchema(ctx, c.cfg.Database.Schema)
}

// Plan holds the computed diff and the SQL that would bring the database in
// line with the registered models.
type Plan struct {
	Diff       *SchemaDiff
	Statements []Statement
}

// Render writes a human-readable summary of the plan.
func (p *Plan) Render(w io.Writer) error {
	return render.NewPlanFormatter(w).Format(p.Diff, p.Statements)
}

// Plan analyzes the database, builds the target schema from the registered
// models and computes the diff and its SQL. Nothing is executed.
func (c *Client) Plan(ctx context.Context) (*Plan, error) {
	current, err := c.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	// The history table is executor state, not part of the modeled schema.
	delete(current.Tables, c.cfg.Migrations.HistoryTable)

	target, err := c.registry.ToSchema()
	if err != nil {
		return nil, err
	}
	// Fold canonical types into the dialect's native spellings so the diff
	// compares like with like.
	for _, t := range target.Tables {
		for i := range t.Columns {
			t.Columns[i].DataType = generator.TranslateType(c.client.Dialect(), t.Columns[i].DataType)
		}
	}

	policy := schema.DiffPolicy{
		AllowTableRemoval:  c.cfg.Schema.AllowTableRemoval,
		AllowColumnRemoval: c.cfg.Schema.AllowColumnRemoval,
	}
	diff := schema.Diff(current, target, policy)
	if diff.IsEmpty() {
		return &Plan{Diff: diff}, nil
	}

	statements, err := generator.Statements(diff, c.client.Dialect())
	if err != nil {
		return nil, err
	}
	return &Plan{Diff: diff, Statements: statements}, nil
}

// Sync computes the plan and applies it. An empty diff applies nothing.
// In dry-run mode the migration files are still written and the statements
// logged, but the database is untouched.
func (c *Client) Sync(ctx context.Context) ([]Applied, error) {
	plan, err := c.Plan(ctx)
	if err != nil {
		return nil, err
	}
	if plan.Diff.IsEmpty() {
		c.logger.Info("schema is up to date")
		return nil, nil
	}

	runner := migrate.NewRunner(c.client, migrate.Options{
		Directory:               c.cfg.Migrations.Directory,
		HistoryTable:            c.cfg.Migrations.HistoryTable,
		DryRun:                  c.cfg.Migrations.DryRun,
		TransactionPerMigration: c.cfg.Migrations.TransactionPerMigration,
	}, c.logger)
	return runner.Run(ctx, plan.Statements)
}
