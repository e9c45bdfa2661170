// Package ir defines the intermediate representation of one logical
// query: the resolved joins, filter tree, annotations, grouping and
// ordering the compiler consumes. A Query is produced by a Builder and
// never mutated afterwards.
package ir

import (
	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/schema"
)

// JoinKind selects the SQL join type.
type JoinKind int

const (
	// LeftOuter is a LEFT OUTER JOIN. Relation traversals always use
	// outer joins so filters do not silently drop rows whose optional
	// relation is absent.
	LeftOuter JoinKind = iota
	// Inner is a plain INNER JOIN.
	Inner
)

// Join is one resolved join requirement. Joins are uniquely keyed by
// the relation path that first required them; later references to the
// same path reuse the alias.
type Join struct {
	// PathKey is the canonical relation path this join satisfies.
	PathKey string
	// Table is the joined table name.
	Table string
	// Alias is the table alias. Equal to Table when the table appears
	// only once in the query.
	Alias string
	// LeftAlias is the alias of the table on the left of the ON clause.
	LeftAlias string
	// LeftColumn is the joining column on the left table.
	LeftColumn string
	// RightColumn is the joining column on this table.
	RightColumn string
	// Kind is the join type.
	Kind JoinKind
}

// ColumnRef is a fully qualified column reference.
type ColumnRef struct {
	// Alias is the table alias qualifying the column.
	Alias string
	// Column is the column name.
	Column string
}

// Aggregate identifies an SQL aggregate function.
type Aggregate string

const (
	// Max is the maximum of a column.
	Max Aggregate = "max"
	// Min is the minimum of a column.
	Min Aggregate = "min"
	// Avg is the arithmetic mean of a column.
	Avg Aggregate = "avg"
	// Count counts rows or non-null column values.
	Count Aggregate = "count"
	// Sum is the sum of a column.
	Sum Aggregate = "sum"
	// StdDev is the standard deviation of a column.
	StdDev Aggregate = "stddev"
	// Variance is the variance of a column.
	Variance Aggregate = "variance"
)

// Annotation is one aggregate expression added to the select list.
type Annotation struct {
	// Alias is the output name of the aggregate.
	Alias string
	// Agg is the aggregate function.
	Agg Aggregate
	// Ref is the aggregated field. An empty path with Agg == Count
	// means COUNT(*).
	Ref expr.FieldRef
	// Column is the resolved column, filled in by the builder.
	Column ColumnRef
}

// Order is one resolved ordering term.
type Order struct {
	// Ref is the ordering field as given.
	Ref expr.FieldRef
	// Column is the resolved column.
	Column ColumnRef
	// Desc orders descending when true.
	Desc bool
}

// Query is the validated IR of one logical query. Every FieldRef that
// appears in Where, Annotations or OrderBy has an entry in the column
// map, and every multi-segment path has its joins in Joins.
type Query struct {
	// Root is the entity the query selects from.
	Root *schema.Entity
	// RootAlias qualifies the root entity's columns.
	RootAlias string
	// Joins are the resolved join requirements, in the order they were
	// first needed. The order is deterministic for reproducible SQL.
	Joins []Join
	// Where is the filter tree, or nil.
	Where expr.Node
	// Annotations are the aggregate select expressions.
	Annotations []Annotation
	// GroupBy lists grouped columns. Populated implicitly with all
	// root columns when annotations are present and root columns are
	// still selected.
	GroupBy []ColumnRef
	// OrderBy lists ordering terms.
	OrderBy []Order
	// Limit bounds the result count; 0 means no limit.
	Limit int
	// Offset skips leading rows; 0 means no offset.
	Offset int
	// AggregatesOnly drops the root column select list, for terminal
	// aggregate queries.
	AggregatesOnly bool

	// Columns maps canonical field paths to resolved column
	// references.
	Columns map[string]ColumnRef
}

// ColumnFor resolves a field reference against the column map.
func (q *Query) ColumnFor(ref expr.FieldRef) (ColumnRef, bool) {
	c, ok := q.Columns[ref.PathKey()]
	return c, ok
}
