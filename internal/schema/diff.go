package schema

import (
	"sort"
	"strings"
)

// DiffPolicy controls which destructive changes the diff engine may emit.
// Disallowed removals are omitted from the diff, never applied implicitly.
type DiffPolicy struct {
	AllowTableRemoval  bool
	AllowColumnRemoval bool
}

// ColumnChange describes a column whose definition differs between the
// current and target schema.
type ColumnChange struct {
	ColumnName string
	From       Column
	To         Column
}

// SchemaDiff describes every structural change needed to bring a current
// schema in line with a target schema. All collections are deterministically
// ordered: by name, except TablesToDrop which orders referencing tables
// before their referents.
type SchemaDiff struct {
	TablesToCreate []*Table
	TablesToDrop   []string

	ColumnsToAdd   map[string][]Column
	ColumnsToDrop  map[string][]string
	ColumnsToAlter map[string][]ColumnChange

	IndexesToCreate map[string][]Index
	IndexesToDrop   map[string][]string

	ForeignKeysToCreate map[string][]ForeignKey
	ForeignKeysToDrop   map[string][]string
}

// Diff computes the structural delta between a current and a target schema
// under the given policy. It is pure: neither schema is modified and no I/O
// is performed.
func Diff(current, target *Schema, policy DiffPolicy) *SchemaDiff {
	d := &SchemaDiff{
		ColumnsToAdd:        make(map[string][]Column),
		ColumnsToDrop:       make(map[string][]string),
		ColumnsToAlter:      make(map[string][]ColumnChange),
		IndexesToCreate:     make(map[string][]Index),
		IndexesToDrop:       make(map[string][]string),
		ForeignKeysToCreate: make(map[string][]ForeignKey),
		ForeignKeysToDrop:   make(map[string][]string),
	}

	// Tables to create: in target, absent from current.
	for _, name := range sortedTableNames(target) {
		if _, ok := current.Tables[name]; !ok {
			d.TablesToCreate = append(d.TablesToCreate, target.Tables[name])
		}
	}

	// Tables to drop: in current, absent from target, policy permitting.
	// Ordered so a referencing table always drops before its referent.
	dropped := make(map[string]bool)
	for name := range current.Tables {
		if _, ok := target.Tables[name]; !ok && policy.AllowTableRemoval {
			dropped[name] = true
		}
	}
	d.TablesToDrop = orderTableDrops(current, dropped)

	// Tables present in both: column, index and foreign-key deltas.
	for _, name := range sortedTableNames(target) {
		currentTable, ok := current.Tables[name]
		if !ok {
			continue
		}
		targetTable := target.Tables[name]
		diffColumns(d, currentTable, targetTable, policy)
		diffIndexes(d, currentTable, targetTable)
		diffForeignKeys(d, currentTable, targetTable)
	}

	// A foreign key on a surviving table that references a dropped table must
	// itself be dropped, and the generator orders those drops ahead of the
	// table drops.
	if len(dropped) > 0 {
		for _, name := range sortedTableNames(current) {
			if dropped[name] {
				continue
			}
			if _, kept := target.Tables[name]; !kept {
				continue
			}
			for _, fk := range current.Tables[name].ForeignKeys {
				if dropped[fk.RefTable] && !containsString(d.ForeignKeysToDrop[name], fk.Name) {
					d.ForeignKeysToDrop[name] = append(d.ForeignKeysToDrop[name], fk.Name)
				}
			}
			sort.Strings(d.ForeignKeysToDrop[name])
		}
	}

	return d
}

// orderTableDrops sorts the dropped tables so that a table referencing
// another dropped table comes first; the engine rejects dropping a table
// that still has inbound foreign keys. Ties and cycles fall back to name
// order, which keeps the output deterministic.
func orderTableDrops(current *Schema, dropped map[string]bool) []string {
	names := make([]string, 0, len(dropped))
	for name := range dropped {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) < 2 {
		return names
	}

	// Edge child → referent: the child must drop before its referent.
	edges := make(map[string][]string)
	inbound := make(map[string]int)
	for _, name := range names {
		seen := make(map[string]bool)
		for _, fk := range current.Tables[name].ForeignKeys {
			if fk.RefTable == name || !dropped[fk.RefTable] || seen[fk.RefTable] {
				continue
			}
			seen[fk.RefTable] = true
			edges[name] = append(edges[name], fk.RefTable)
			inbound[fk.RefTable]++
		}
		sort.Strings(edges[name])
	}

	var order, ready []string
	for _, name := range names {
		if inbound[name] == 0 {
			ready = append(ready, name)
		}
	}
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, ref := range edges[name] {
			if inbound[ref]--; inbound[ref] == 0 {
				ready = append(ready, ref)
				sort.Strings(ready)
			}
		}
	}
	// A reference cycle leaves tables unordered; append them by name.
	if len(order) < len(names) {
		placed := make(map[string]bool, len(order))
		for _, name := range order {
			placed[name] = true
		}
		for _, name := range names {
			if !placed[name] {
				order = append(order, name)
			}
		}
	}
	return order
}

func diffColumns(d *SchemaDiff, current, target *Table, policy DiffPolicy) {
	currentByName := make(map[string]*Column, len(current.Columns))
	for i := range current.Columns {
		currentByName[current.Columns[i].Name] = &current.Columns[i]
	}
	targetByName := make(map[string]*Column, len(target.Columns))
	for i := range target.Columns {
		targetByName[target.Columns[i].Name] = &target.Columns[i]
	}

	var add []Column
	var alter []ColumnChange
	for _, col := range target.Columns {
		cur, exists := currentByName[col.Name]
		if !exists {
			add = append(add, col)
			continue
		}
		if columnNeedsAlteration(cur, &col) {
			alter = append(alter, ColumnChange{ColumnName: col.Name, From: *cur, To: col})
		}
	}
	sort.Slice(add, func(i, j int) bool { return add[i].Name < add[j].Name })
	sort.Slice(alter, func(i, j int) bool { return alter[i].ColumnName < alter[j].ColumnName })
	if len(add) > 0 {
		d.ColumnsToAdd[target.Name] = add
	}
	if len(alter) > 0 {
		d.ColumnsToAlter[target.Name] = alter
	}

	if policy.AllowColumnRemoval {
		var drop []string
		for _, col := range current.Columns {
			if _, exists := targetByName[col.Name]; !exists {
				drop = append(drop, col.Name)
			}
		}
		sort.Strings(drop)
		if len(drop) > 0 {
			d.ColumnsToDrop[target.Name] = drop
		}
	}
}

// columnNeedsAlteration reports whether any of the four independently
// compared properties differ: data type, nullability, default expression,
// uniqueness. Types compare case-insensitively because catalogs report
// lowercase names while generated DDL uses uppercase.
func columnNeedsAlteration(current, target *Column) bool {
	if !DataTypesEqual(current.DataType, target.DataType) {
		return true
	}
	if current.Nullable != target.Nullable {
		return true
	}
	if !DefaultsEqual(current.Default, target.Default) {
		return true
	}
	if current.IsUnique != target.IsUnique {
		return true
	}
	return false
}

// DataTypesEqual compares two column types case-insensitively. Generators
// use the same comparison so a statement is only emitted for properties the
// diff actually flagged.
func DataTypesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// DefaultsEqual compares two default expressions after normalization; a nil
// on either side only equals another nil.
func DefaultsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return normalizeDefault(*a) == normalizeDefault(*b)
}

// normalizeDefault folds the catalog's rewritten form of a default
// expression back to its declared spelling: cast suffixes are stripped
// ('x'::character varying) and now() equals CURRENT_TIMESTAMP.
func normalizeDefault(expr string) string {
	expr = strings.TrimSpace(expr)
	if i := strings.Index(expr, "::"); i != -1 {
		expr = expr[:i]
	}
	expr = strings.ToLower(expr)
	if expr == "now()" {
		expr = "current_timestamp"
	}
	return expr
}

func diffIndexes(d *SchemaDiff, current, target *Table) {
	var create []Index
	var drop []string
	for _, idx := range target.Indexes {
		cur := current.Index(idx.Name)
		switch {
		case cur == nil:
			create = append(create, idx)
		case !indexEqual(cur, &idx):
			// definition drift: recreate under the same name
			drop = append(drop, idx.Name)
			create = append(create, idx)
		}
	}
	for _, idx := range current.Indexes {
		if target.Index(idx.Name) == nil {
			drop = append(drop, idx.Name)
		}
	}
	sort.Slice(create, func(i, j int) bool { return create[i].Name < create[j].Name })
	sort.Strings(drop)
	if len(create) > 0 {
		d.IndexesToCreate[target.Name] = create
	}
	if len(drop) > 0 {
		d.IndexesToDrop[target.Name] = drop
	}
}

// indexEqual compares column lists and uniqueness. The access method is only
// compared when both sides report one, since not every dialect's catalog
// exposes it.
func indexEqual(a, b *Index) bool {
	if a.IsUnique != b.IsUnique {
		return false
	}
	if !stringSlicesEqual(a.Columns, b.Columns) {
		return false
	}
	if a.Method != "" && b.Method != "" && a.Method != b.Method {
		return false
	}
	return true
}

func diffForeignKeys(d *SchemaDiff, current, target *Table) {
	var create []ForeignKey
	var drop []string
	for _, fk := range target.ForeignKeys {
		cur := current.ForeignKeyByName(fk.Name)
		switch {
		case cur == nil:
			create = append(create, fk)
		case !foreignKeyEqual(cur, &fk):
			drop = append(drop, fk.Name)
			create = append(create, fk)
		}
	}
	for _, fk := range current.ForeignKeys {
		if target.ForeignKeyByName(fk.Name) == nil {
			drop = append(drop, fk.Name)
		}
	}
	sort.Slice(create, func(i, j int) bool { return create[i].Name < create[j].Name })
	sort.Strings(drop)
	if len(create) > 0 {
		d.ForeignKeysToCreate[target.Name] = create
	}
	if len(drop) > 0 {
		d.ForeignKeysToDrop[target.Name] = drop
	}
}

// foreignKeyEqual compares the referenced table and the column pairings.
// Referential actions are only compared when both sides specify them, since
// introspection reports engine defaults ("NO ACTION") that a target model
// typically leaves unset.
func foreignKeyEqual(a, b *ForeignKey) bool {
	if a.RefTable != b.RefTable {
		return false
	}
	if !stringSlicesEqual(a.Columns, b.Columns) || !stringSlicesEqual(a.RefColumns, b.RefColumns) {
		return false
	}
	if a.OnDelete != "" && b.OnDelete != "" && a.OnDelete != b.OnDelete {
		return false
	}
	if a.OnUpdate != "" && b.OnUpdate != "" && a.OnUpdate != b.OnUpdate {
		return false
	}
	return true
}

// IsEmpty reports whether no changes are needed: the authoritative
// "already in sync" signal.
func (d *SchemaDiff) IsEmpty() bool {
	return len(d.TablesToCreate) == 0 &&
		len(d.TablesToDrop) == 0 &&
		len(d.ColumnsToAdd) == 0 &&
		len(d.ColumnsToDrop) == 0 &&
		len(d.ColumnsToAlter) == 0 &&
		len(d.IndexesToCreate) == 0 &&
		len(d.IndexesToDrop) == 0 &&
		len(d.ForeignKeysToCreate) == 0 &&
		len(d.ForeignKeysToDrop) == 0
}

// TableToCreate returns the pending table definition with the given name,
// or nil if the diff does not create it.
func (d *SchemaDiff) TableToCreate(name string) *Table {
	for _, t := range d.TablesToCreate {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// SortedTableNames returns the sorted key set of a table-keyed change map.
func SortedTableNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedTableNames(s *Schema) []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
