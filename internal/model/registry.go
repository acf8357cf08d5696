package model

import (
	"github.com/tordrt/schemasync/internal/config"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/syncerr"
)

// Registry collects model descriptors for one run and builds the target
// schema from them. It is constructed per run and passed explicitly; there
// is no process-wide registry.
type Registry struct {
	cfg    *config.Config
	mapper *TypeMapper

	models  []Descriptor
	byTable map[string]string // table name -> model name, for duplicate detection
	byModel map[string]string // model name -> table name, for FK resolution
}

// NewRegistry creates an empty registry bound to a configuration.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:     cfg,
		mapper:  NewTypeMapper(cfg.TypeMapping),
		byTable: make(map[string]string),
		byModel: make(map[string]string),
	}
}

// Register validates and adds a model descriptor. Malformed descriptors are
// syntax errors; a table-name collision with an already registered model is
// a validation error.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return syncerr.New(syncerr.KindSyntax, "model descriptor has no name")
	}
	if len(d.Fields) == 0 {
		return syncerr.Newf(syncerr.KindSyntax, "model %s has no fields", d.Name)
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return syncerr.Newf(syncerr.KindSyntax, "model %s has a field with no name", d.Name)
		}
		if f.SourceType == "" && f.DBType == "" {
			return syncerr.Newf(syncerr.KindSyntax, "model %s field %s has neither a source type nor a column type", d.Name, f.Name)
		}
		if seen[f.Name] {
			return syncerr.Newf(syncerr.KindValidation, "model %s declares field %s more than once", d.Name, f.Name)
		}
		seen[f.Name] = true
		if f.References != nil && f.References.Model == "" {
			return syncerr.Newf(syncerr.KindValidation, "model %s field %s references no model", d.Name, f.Name)
		}
	}

	tableName := r.tableName(d)
	if owner, exists := r.byTable[tableName]; exists {
		return syncerr.Newf(syncerr.KindValidation, "models %s and %s both map to table %s", owner, d.Name, tableName)
	}

	r.models = append(r.models, d)
	r.byTable[tableName] = d.Name
	r.byModel[d.Name] = tableName
	return nil
}

// Models returns the registered descriptors in registration order.
func (r *Registry) Models() []Descriptor {
	return r.models
}

func (r *Registry) tableName(d Descriptor) string {
	if d.TableName != "" {
		return d.TableName
	}
	return TableName(r.cfg.Naming, d.Name)
}

// refTableName resolves a referenced model to its table name, preferring a
// registered model's actual table over the derived convention.
func (r *Registry) refTableName(modelName string) string {
	if table, ok := r.byModel[modelName]; ok {
		return table
	}
	return TableName(r.cfg.Naming, modelName)
}

// ToSchema builds the target schema: derived names, mapped types, audit
// columns, unique indexes, and foreign keys with their supporting indexes.
func (r *Registry) ToSchema() (*schema.Schema, error) {
	s := schema.NewSchema(r.cfg.Database.Schema)
	for _, d := range r.models {
		table, err := r.buildTable(d)
		if err != nil {
			return nil, err
		}
		s.AddTable(table)
	}
	return s, nil
}

func (r *Registry) buildTable(d Descriptor) (*schema.Table, error) {
	tableName := r.tableName(d)
	table := schema.NewTable(tableName)
	table.Comment = d.Comment

	var pkColumns []string
	for _, f := range d.Fields {
		columnName := f.ColumnName
		if columnName == "" {
			columnName = ColumnName(r.cfg.Naming, f.Name)
		}

		dataType := f.DBType
		if dataType == "" {
			mapped, err := r.mapper.Resolve(f.SourceType)
			if err != nil {
				return nil, syncerr.Wrapf(syncerr.KindTypeMapping, err, "model %s field %s", d.Name, f.Name)
			}
			dataType = mapped
		}

		nullable := r.cfg.Schema.DefaultNullable
		if f.Nullable != nil {
			nullable = *f.Nullable
		}
		if f.PrimaryKey {
			nullable = false
		}

		table.AddColumn(schema.Column{
			Name:     columnName,
			DataType: dataType,
			Nullable: nullable,
			Default:  f.Default,
			Comment:  f.Comment,
			IsUnique: f.Unique,
		})

		if f.PrimaryKey {
			pkColumns = append(pkColumns, columnName)
		}
		if f.Unique {
			table.AddIndex(schema.Index{
				Name:     IndexName(r.cfg.Naming.IndexPattern, tableName, []string{columnName}),
				Columns:  []string{columnName},
				IsUnique: true,
			})
		}
		if f.References != nil {
			r.addForeignKey(table, tableName, columnName, f.References)
		}
	}

	if len(pkColumns) > 0 {
		table.SetPrimaryKey(schema.PrimaryKey{Name: "pk_" + tableName, Columns: pkColumns})
	}

	r.addAuditColumns(table)
	return table, nil
}

func (r *Registry) addForeignKey(table *schema.Table, tableName, columnName string, ref *ForeignKeyRef) {
	refColumn := ref.Column
	if refColumn == "" {
		refColumn = "id"
	}
	table.AddForeignKey(schema.ForeignKey{
		Name:       ConstraintName(r.cfg.Naming.ConstraintPattern, tableName, columnName),
		Columns:    []string{columnName},
		RefTable:   r.refTableName(ref.Model),
		RefColumns: []string{refColumn},
		OnDelete:   ref.OnDelete,
		OnUpdate:   ref.OnUpdate,
	})

	if !r.cfg.Schema.IndexForeignKeys {
		return
	}
	// A unique field already carries an index on the same column.
	for _, idx := range table.Indexes {
		if len(idx.Columns) == 1 && idx.Columns[0] == columnName {
			return
		}
	}
	table.AddIndex(schema.Index{
		Name:    IndexName(r.cfg.Naming.IndexPattern, tableName, []string{columnName}),
		Columns: []string{columnName},
	})
}

// addAuditColumns appends created_at/updated_at when the policy asks for
// them and the model did not declare them itself.
func (r *Registry) addAuditColumns(table *schema.Table) {
	defaultNow := "CURRENT_TIMESTAMP"
	if r.cfg.Schema.AddCreatedAtColumn && table.Column("created_at") == nil {
		table.AddColumn(schema.Column{
			Name:     "created_at",
			DataType: "TIMESTAMP WITH TIME ZONE",
			Nullable: false,
			Default:  &defaultNow,
		})
	}
	if r.cfg.Schema.AddUpdatedAtColumn && table.Column("updated_at") == nil {
		table.AddColumn(schema.Column{
			Name:     "updated_at",
			DataType: "TIMESTAMP WITH TIME ZONE",
			Nullable: false,
			Default:  &defaultNow,
		})
	}
}
