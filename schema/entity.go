// Package schema describes entities, their fields and their relations,
// built either from tagged Go structs (RegisterModel) or from the
// schema DSL (ParseSchema). It is the read-only input consumed by the
// query IR builder and the compiler; nothing in this package touches a
// database.
package schema

import "strings"

// FieldKind specifies the value kind of an entity field.
type FieldKind int

const (
	// KindString is a text field.
	KindString FieldKind = iota
	// KindInt is an integer field.
	KindInt
	// KindFloat is a floating point field.
	KindFloat
	// KindBool is a boolean field.
	KindBool
	// KindTime is a timestamp field.
	KindTime
)

// String returns the schema DSL name of the field kind.
func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	}
	return "unknown"
}

// Cardinality specifies how two entities relate.
type Cardinality int

const (
	// OneToOne relates a single row to a single row.
	OneToOne Cardinality = iota
	// ManyToOne relates many rows to one row (a foreign key).
	ManyToOne
	// ManyToMany relates rows through an implicit link table.
	ManyToMany
	// OneToMany is the reverse side of a foreign key: one row relates
	// to many rows whose key column points back at it.
	OneToMany
)

// String returns the schema DSL name of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case OneToOne:
		return "one_to_one"
	case ManyToOne:
		return "many_to_one"
	case ManyToMany:
		return "many_to_many"
	case OneToMany:
		return "one_to_many"
	}
	return "unknown"
}

// FieldDef describes a single concrete column of an entity.
type FieldDef struct {
	// Name is the logical field name used in lookup paths.
	Name string
	// Column is the database column name. Defaults to Name.
	Column string
	// Kind is the value kind of the field.
	Kind FieldKind
	// PrimaryKey marks the field as the entity's primary key.
	PrimaryKey bool
	// Nullable marks the column as accepting NULL.
	Nullable bool
	// Default is the value applied when none is provided, or nil.
	Default any
	// Choices restricts the field to a fixed value set, or nil.
	Choices []any
}

// RelationDef describes a named traversal from one entity to another.
type RelationDef struct {
	// Name is the logical relation name used in lookup paths.
	Name string
	// Target is the name of the entity the relation points at.
	Target string
	// Cardinality is the relation shape.
	Cardinality Cardinality
	// LocalColumn is the column on the owning entity's table.
	LocalColumn string
	// ForeignColumn is the column on the target entity's table.
	ForeignColumn string
	// LinkTable names the intermediate table for many-to-many
	// relations; empty otherwise.
	LinkTable string
	// LinkLocal is the link table column referencing the owning entity.
	LinkLocal string
	// LinkForeign is the link table column referencing the target.
	LinkForeign string
}

// Entity is the static description of one model: its table, fields and
// relations. Entities are immutable once registered.
type Entity struct {
	// Name is the logical entity name, unique within a Registry.
	Name string
	// Table is the database table name. Defaults to Name.
	Table string
	// Fields holds the concrete columns, in declaration order.
	Fields []FieldDef
	// Relations holds the named traversals to other entities.
	Relations []RelationDef
}

// Field returns the field with the given logical name.
func (e *Entity) Field(name string) (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Relation returns the relation with the given logical name.
func (e *Entity) Relation(name string) (RelationDef, bool) {
	for _, r := range e.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return RelationDef{}, false
}

// PrimaryKey returns the entity's primary key field. Entities built by
// RegisterModel or the DSL parser always have one.
func (e *Entity) PrimaryKey() (FieldDef, bool) {
	for _, f := range e.Fields {
		if f.PrimaryKey {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Columns returns the column names of all fields, in declaration order.
func (e *Entity) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Column
	}
	return cols
}

// ShortCode returns a compact alias prefix for the entity's table.
func (e *Entity) ShortCode() string {
	return ShortCode(e.Table)
}

// ShortCode compacts a table name to the first letter of each
// underscore-separated word (e.g. "user_profile" -> "up"). The query
// builder uses it as the alias prefix for repeated tables.
func ShortCode(table string) string {
	var b strings.Builder
	for _, part := range strings.Split(table, "_") {
		if part != "" {
			b.WriteByte(part[0])
		}
	}
	if b.Len() == 0 {
		return "t"
	}
	return b.String()
}
