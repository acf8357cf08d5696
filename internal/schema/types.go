// Package schema holds the canonical, dialect-neutral representation of a
// database schema and the diff engine that compares two of them.
package schema

// Schema represents a complete database schema
type Schema struct {
	Name   string // optional schema/namespace qualifier
	Tables map[string]*Table
	Views  map[string]*View
}

// NewSchema creates a new empty schema with an optional namespace qualifier
func NewSchema(name string) *Schema {
	return &Schema{
		Name:   name,
		Tables: make(map[string]*Table),
		Views:  make(map[string]*View),
	}
}

// AddTable adds a table to the schema, keyed by name
func (s *Schema) AddTable(t *Table) {
	s.Tables[t.Name] = t
}

// AddView adds a view to the schema, keyed by name
func (s *Schema) AddView(v *View) {
	s.Views[v.Name] = v
}

// Table represents a database table
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  *PrimaryKey
	Indexes     []Index
	ForeignKeys []ForeignKey
	Comment     string
}

// NewTable creates a new empty table with the given name
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// AddColumn appends a column to the table
func (t *Table) AddColumn(c Column) {
	t.Columns = append(t.Columns, c)
}

// SetPrimaryKey sets the table's primary key
func (t *Table) SetPrimaryKey(pk PrimaryKey) {
	t.PrimaryKey = &pk
}

// AddIndex appends an index to the table
func (t *Table) AddIndex(idx Index) {
	t.Indexes = append(t.Indexes, idx)
}

// AddForeignKey appends a foreign key to the table
func (t *Table) AddForeignKey(fk ForeignKey) {
	t.ForeignKeys = append(t.ForeignKeys, fk)
}

// Column returns the column with the given name, or nil if absent
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Index returns the index with the given name, or nil if absent
func (t *Table) Index(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	return nil
}

// ForeignKeyByName returns the foreign key with the given name, or nil if absent
func (t *Table) ForeignKeyByName(name string) *ForeignKey {
	for i := range t.ForeignKeys {
		if t.ForeignKeys[i].Name == name {
			return &t.ForeignKeys[i]
		}
	}
	return nil
}

// Column represents a table column. Its identity for diffing purposes is
// the (table, name) pair.
type Column struct {
	Name           string
	DataType       string // canonical data-type string
	Nullable       bool
	Default        *string // raw SQL default expression
	Comment        string
	IsUnique       bool
	IsGenerated    bool
	GenerationExpr string
}

// PrimaryKey represents a primary key constraint
type PrimaryKey struct {
	Name    string // optional constraint name
	Columns []string
}

// Index represents a database index
type Index struct {
	Name     string
	Columns  []string
	IsUnique bool
	Method   string // access method, e.g. "btree"; empty when unknown
}

// ForeignKey represents a foreign key constraint. Columns and RefColumns
// have the same arity and pair up positionally.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// View represents a database view
type View struct {
	Name           string
	Definition     string
	Columns        []Column
	IsMaterialized bool
}
