package ir

import (
	"fmt"
	"strings"

	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/schema"
)

// Builder accumulates pending filter, annotation and ordering
// operations for one query and resolves them into a validated Query.
// A Builder is single-use and not safe for concurrent use; querysets
// construct a fresh one per evaluation.
type Builder struct {
	reg  *schema.Registry
	root *schema.Entity

	filters        []expr.Node
	annotations    []Annotation
	orderings      []Order
	limit          int
	offset         int
	aggregatesOnly bool

	// resolver state
	joins     []Join
	aliases   map[string]pathTarget
	usedNames map[string]bool
	aliasSeq  int
	columns   map[string]ColumnRef
}

// pathTarget is the resolved endpoint of one relation path prefix.
type pathTarget struct {
	alias  string
	entity *schema.Entity
}

// NewBuilder creates a builder for a query rooted at the given entity.
func NewBuilder(reg *schema.Registry, root *schema.Entity) *Builder {
	return &Builder{reg: reg, root: root}
}

// Filter appends filter nodes. All nodes passed across all calls are
// combined with AND at build time.
func (b *Builder) Filter(nodes ...expr.Node) {
	b.filters = append(b.filters, nodes...)
}

// Annotate appends an aggregate annotation.
func (b *Builder) Annotate(alias string, agg Aggregate, ref expr.FieldRef) {
	b.annotations = append(b.annotations, Annotation{Alias: alias, Agg: agg, Ref: ref})
}

// OrderBy appends an ordering term.
func (b *Builder) OrderBy(ref expr.FieldRef, desc bool) {
	b.orderings = append(b.orderings, Order{Ref: ref, Desc: desc})
}

// Limit bounds the result count.
func (b *Builder) Limit(n int) { b.limit = n }

// Offset skips leading rows.
func (b *Builder) Offset(n int) { b.offset = n }

// AggregatesOnly drops the root select list, for terminal aggregates.
func (b *Builder) AggregatesOnly() { b.aggregatesOnly = true }

// Build resolves all accumulated operations into a Query. Relation
// paths are walked against the registry; unknown names surface
// *schema.UnknownFieldError and misused fields
// *schema.InvalidPathError.
func (b *Builder) Build() (*Query, error) {
	b.aliases = map[string]pathTarget{"": {alias: b.root.Table, entity: b.root}}
	b.usedNames = map[string]bool{b.root.Table: true}
	b.columns = make(map[string]ColumnRef)

	// Resolution order is fixed (filters, then annotations, then
	// orderings) so join order and alias numbering are deterministic.
	var where expr.Node
	if len(b.filters) > 0 {
		where = expr.And(b.filters...)
		if err := b.walkNode(where); err != nil {
			return nil, err
		}
	}

	annotations := make([]Annotation, len(b.annotations))
	for i, ann := range b.annotations {
		if ann.Alias == "" {
			return nil, fmt.Errorf("annotation %d: alias must not be empty", i)
		}
		annotations[i] = ann
		if ann.Agg == Count && len(ann.Ref.Path) == 0 {
			continue // COUNT(*), nothing to resolve
		}
		col, err := b.resolveRef(ann.Ref)
		if err != nil {
			return nil, err
		}
		annotations[i].Column = col
	}

	orderings := make([]Order, len(b.orderings))
	for i, ord := range b.orderings {
		col, err := b.resolveRef(ord.Ref)
		if err != nil {
			return nil, err
		}
		orderings[i] = Order{Ref: ord.Ref, Column: col, Desc: ord.Desc}
	}

	q := &Query{
		Root:           b.root,
		RootAlias:      b.root.Table,
		Joins:          b.joins,
		Where:          where,
		Annotations:    annotations,
		OrderBy:        orderings,
		Limit:          b.limit,
		Offset:         b.offset,
		AggregatesOnly: b.aggregatesOnly,
		Columns:        b.columns,
	}

	// Aggregates alongside selected root columns require grouping over
	// every non-aggregated selected column.
	if len(annotations) > 0 && !b.aggregatesOnly {
		for _, f := range b.root.Fields {
			q.GroupBy = append(q.GroupBy, ColumnRef{Alias: q.RootAlias, Column: f.Column})
		}
	}
	return q, nil
}

func (b *Builder) walkNode(n expr.Node) error {
	switch node := n.(type) {
	case expr.Condition:
		if _, err := b.resolveRef(node.Ref); err != nil {
			return err
		}
		return b.walkExpr(node.Operand)
	case expr.AndNode:
		for _, child := range node.Children {
			if err := b.walkNode(child); err != nil {
				return err
			}
		}
		return nil
	case expr.OrNode:
		for _, child := range node.Children {
			if err := b.walkNode(child); err != nil {
				return err
			}
		}
		return nil
	case expr.NotNode:
		return b.walkNode(node.Child)
	default:
		return fmt.Errorf("unknown filter node type: %T", n)
	}
}

func (b *Builder) walkExpr(e expr.Expression) error {
	switch v := e.(type) {
	case expr.FieldRef:
		_, err := b.resolveRef(v)
		return err
	case expr.BinaryArith:
		if err := b.walkExpr(v.Left); err != nil {
			return err
		}
		return b.walkExpr(v.Right)
	case expr.Literal:
		return nil
	default:
		return fmt.Errorf("unknown expression type: %T", e)
	}
}

// resolveRef validates a field path through schema.Resolve, then
// materializes a join for every relation step it has not seen before
// and records the resolved column.
func (b *Builder) resolveRef(ref expr.FieldRef) (ColumnRef, error) {
	key := ref.PathKey()
	if col, ok := b.columns[key]; ok {
		return col, nil
	}

	rp, err := schema.Resolve(b.reg, b.root, ref.Path)
	if err != nil {
		return ColumnRef{}, err
	}

	at := b.aliases[""]
	for i, step := range rp.Steps {
		prefix := strings.Join(ref.Path[:i+1], "__")
		if cached, ok := b.aliases[prefix]; ok {
			at = cached
			continue
		}
		at = b.joinStep(at, step, prefix)
		b.aliases[prefix] = at
	}

	col := ColumnRef{Alias: at.alias, Column: rp.Field.Column}
	b.columns[key] = col
	return col, nil
}

// joinStep materializes the join(s) for one resolved relation step.
// Many-to-many traversals produce two joins: the link table and the
// target table.
func (b *Builder) joinStep(from pathTarget, step schema.Step, pathKey string) pathTarget {
	rel := step.Relation
	left := from.alias
	leftCol := rel.LocalColumn
	if rel.Cardinality == schema.ManyToMany {
		linkAlias := b.allocAlias(rel.LinkTable)
		b.joins = append(b.joins, Join{
			PathKey:     pathKey + "~link",
			Table:       rel.LinkTable,
			Alias:       linkAlias,
			LeftAlias:   from.alias,
			LeftColumn:  rel.LocalColumn,
			RightColumn: rel.LinkLocal,
			Kind:        LeftOuter,
		})
		left = linkAlias
		leftCol = rel.LinkForeign
	}

	alias := b.allocAlias(step.To.Table)
	b.joins = append(b.joins, Join{
		PathKey:     pathKey,
		Table:       step.To.Table,
		Alias:       alias,
		LeftAlias:   left,
		LeftColumn:  leftCol,
		RightColumn: rel.ForeignColumn,
		Kind:        LeftOuter,
	})
	return pathTarget{alias: alias, entity: step.To}
}

// allocAlias returns the table name itself the first time a table
// appears in the query, and a short-code alias with a per-query
// monotonic sequence for every later appearance.
func (b *Builder) allocAlias(table string) string {
	if !b.usedNames[table] {
		b.usedNames[table] = true
		return table
	}
	for {
		b.aliasSeq++
		alias := fmt.Sprintf("%s_%d", schema.ShortCode(table), b.aliasSeq)
		if !b.usedNames[alias] {
			b.usedNames[alias] = true
			return alias
		}
	}
}
