// Package sqlgen compiles query IR into dialect-specific SQL text and
// an ordered parameter list.
package sqlgen

import (
	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
)

// Dialect bundles everything that varies between SQL backends: the
// parameter placeholder style, the lookup template table and the
// aggregate keyword table. The template tables are the dialect's
// extension point; overriding one entry does not touch the rest of the
// compiler.
type Dialect struct {
	// Name identifies the dialect in errors and registries.
	Name string
	// Placeholder renders the n-th parameter placeholder (1-based).
	Placeholder func(n int) string
	// Lookups maps each lookup kind to an SQL template with two %s
	// slots: the qualified column and the operand.
	Lookups map[expr.Lookup]string
	// IsNullSQL is the template for isnull with a true operand.
	IsNullSQL string
	// IsNotNullSQL is the template for isnull with a false operand.
	IsNotNullSQL string
	// Aggregates maps each aggregate to its SQL function keyword.
	Aggregates map[ir.Aggregate]string
	// QuoteIdent quotes an identifier; nil means no quoting.
	QuoteIdent func(string) string
}

// WithLookup returns a copy of the dialect with one lookup template
// replaced.
func (d *Dialect) WithLookup(l expr.Lookup, template string) *Dialect {
	clone := d.clone()
	clone.Lookups[l] = template
	return clone
}

// WithAggregate returns a copy of the dialect with one aggregate
// keyword replaced.
func (d *Dialect) WithAggregate(a ir.Aggregate, keyword string) *Dialect {
	clone := d.clone()
	clone.Aggregates[a] = keyword
	return clone
}

func (d *Dialect) clone() *Dialect {
	clone := *d
	clone.Lookups = make(map[expr.Lookup]string, len(d.Lookups))
	for k, v := range d.Lookups {
		clone.Lookups[k] = v
	}
	clone.Aggregates = make(map[ir.Aggregate]string, len(d.Aggregates))
	for k, v := range d.Aggregates {
		clone.Aggregates[k] = v
	}
	return &clone
}

func (d *Dialect) quote(name string) string {
	if d.QuoteIdent == nil {
		return name
	}
	return d.QuoteIdent(name)
}
