package sqlgen

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
)

// Compiler is a pure function from query IR to SQL text plus an
// ordered parameter list. It performs no I/O and holds no mutable
// state between calls, so a single Compiler is safe for concurrent
// use.
type Compiler struct {
	dialect *Dialect
}

// New creates a compiler for the given dialect. A nil dialect selects
// Default.
func New(d *Dialect) *Compiler {
	if d == nil {
		d = Default
	}
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() *Dialect { return c.dialect }

// Compile emits a SELECT statement for the query. Operand values are
// never interpolated into the text; they travel in the returned
// parameter slice, in placeholder order.
func (c *Compiler) Compile(q *ir.Query) (string, []any, error) {
	e := &emitter{d: c.dialect, q: q}

	selectList, err := e.selectList()
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList)
	sb.WriteString(" FROM ")
	sb.WriteString(e.d.quote(q.RootAlias))
	if err := e.writeJoins(&sb); err != nil {
		return "", nil, err
	}
	if err := e.writeWhere(&sb); err != nil {
		return "", nil, err
	}
	if len(q.GroupBy) > 0 {
		cols := make([]string, len(q.GroupBy))
		for i, g := range q.GroupBy {
			cols[i] = e.column(g)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(cols, ", "))
	}
	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = e.column(o.Column) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String(), e.finishedParams(), nil
}

// CompileCount emits a SELECT COUNT(*) over the same FROM, JOIN and
// WHERE clauses as Compile. A grouped query counts its groups, not the
// join-expanded rows, so the grouping collapses inside a subquery
// first.
func (c *Compiler) CompileCount(q *ir.Query) (string, []any, error) {
	e := &emitter{d: c.dialect, q: q}

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	if len(q.GroupBy) > 0 {
		cols := make([]string, len(q.GroupBy))
		for i, g := range q.GroupBy {
			cols[i] = e.column(g)
		}
		sb.WriteString("(SELECT ")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(" FROM ")
		sb.WriteString(e.d.quote(q.RootAlias))
		if err := e.writeJoins(&sb); err != nil {
			return "", nil, err
		}
		if err := e.writeWhere(&sb); err != nil {
			return "", nil, err
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(") AS grouped")
		return sb.String(), e.finishedParams(), nil
	}
	sb.WriteString(e.d.quote(q.RootAlias))
	if err := e.writeJoins(&sb); err != nil {
		return "", nil, err
	}
	if err := e.writeWhere(&sb); err != nil {
		return "", nil, err
	}
	return sb.String(), e.finishedParams(), nil
}

// emitter accumulates parameters for one compilation.
type emitter struct {
	d      *Dialect
	q      *ir.Query
	params []any
}

func (e *emitter) param(v any) string {
	e.params = append(e.params, v)
	return e.d.Placeholder(len(e.params))
}

func (e *emitter) finishedParams() []any {
	if e.params == nil {
		return []any{}
	}
	return e.params
}

func (e *emitter) column(c ir.ColumnRef) string {
	return e.d.quote(c.Alias) + "." + e.d.quote(c.Column)
}

func (e *emitter) selectList() (string, error) {
	var cols []string
	if !e.q.AggregatesOnly {
		for _, f := range e.q.Root.Fields {
			cols = append(cols, e.column(ir.ColumnRef{Alias: e.q.RootAlias, Column: f.Column}))
		}
	}
	for _, ann := range e.q.Annotations {
		sql, err := e.annotation(ann)
		if err != nil {
			return "", err
		}
		cols = append(cols, sql)
	}
	if len(cols) == 0 {
		return "", compileErrorf("query selects nothing")
	}
	return strings.Join(cols, ", "), nil
}

func (e *emitter) annotation(ann ir.Annotation) (string, error) {
	keyword, ok := e.d.Aggregates[ann.Agg]
	if !ok {
		return "", compileErrorf("dialect %q has no keyword for aggregate %q", e.d.Name, ann.Agg)
	}
	if ann.Agg == ir.Count && len(ann.Ref.Path) == 0 {
		return fmt.Sprintf("%s(*) AS %s", keyword, e.d.quote(ann.Alias)), nil
	}
	if ann.Column == (ir.ColumnRef{}) {
		return "", compileErrorf("annotation %q has no resolved column", ann.Alias)
	}
	return fmt.Sprintf("%s(%s) AS %s", keyword, e.column(ann.Column), e.d.quote(ann.Alias)), nil
}

func (e *emitter) writeJoins(sb *strings.Builder) error {
	for _, j := range e.q.Joins {
		switch j.Kind {
		case ir.LeftOuter:
			sb.WriteString(" LEFT OUTER JOIN ")
		case ir.Inner:
			sb.WriteString(" INNER JOIN ")
		default:
			return compileErrorf("unknown join kind %d", j.Kind)
		}
		sb.WriteString(e.d.quote(j.Table))
		if j.Alias != j.Table {
			sb.WriteString(" AS ")
			sb.WriteString(e.d.quote(j.Alias))
		}
		fmt.Fprintf(sb, " ON (%s.%s = %s.%s)",
			e.d.quote(j.LeftAlias), e.d.quote(j.LeftColumn),
			e.d.quote(j.Alias), e.d.quote(j.RightColumn))
	}
	return nil
}

func (e *emitter) writeWhere(sb *strings.Builder) error {
	if e.q.Where == nil {
		return nil
	}
	clause, err := e.compileNode(e.q.Where)
	if err != nil {
		return err
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(clause)
	return nil
}

func (e *emitter) compileNode(n expr.Node) (string, error) {
	switch node := n.(type) {
	case expr.Condition:
		return e.compileCondition(node)
	case expr.AndNode:
		return e.compileJunction(node.Children, " AND ")
	case expr.OrNode:
		return e.compileJunction(node.Children, " OR ")
	case expr.NotNode:
		inner, err := e.compileNode(node.Child)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", compileErrorf("unknown filter node type %T", n)
	}
}

func (e *emitter) compileJunction(children []expr.Node, sep string) (string, error) {
	if len(children) == 0 {
		return "", compileErrorf("empty boolean junction")
	}
	parts := make([]string, len(children))
	for i, child := range children {
		s, err := e.compileNode(child)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (e *emitter) compileCondition(cond expr.Condition) (string, error) {
	col, ok := e.q.ColumnFor(cond.Ref)
	if !ok {
		return "", compileErrorf("field %q has no resolved column; builder invariant broken", cond.Ref.PathKey())
	}
	colSQL := e.column(col)

	if cond.Lookup == expr.IsNull {
		if truthy(cond.Operand) {
			return fmt.Sprintf(e.d.IsNullSQL, colSQL), nil
		}
		return fmt.Sprintf(e.d.IsNotNullSQL, colSQL), nil
	}

	template, ok := e.d.Lookups[cond.Lookup]
	if !ok {
		return "", &UnsupportedLookupError{Lookup: cond.Lookup, Dialect: e.d.Name}
	}

	if cond.Lookup == expr.In {
		operandSQL, err := e.compileInOperand(cond.Operand)
		if err != nil {
			return "", err
		}
		if operandSQL == "" {
			// IN over an empty set matches nothing.
			return "1 = 0", nil
		}
		return fmt.Sprintf(template, colSQL, operandSQL), nil
	}

	operandSQL, err := e.compileOperand(cond.Operand, cond.Lookup)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(template, colSQL, operandSQL), nil
}

// compileOperand renders the right-hand side of a condition. Literals
// become placeholders; field references and arithmetic compile to
// column expressions adding nothing to the parameter list.
func (e *emitter) compileOperand(operand expr.Expression, lookup expr.Lookup) (string, error) {
	switch v := operand.(type) {
	case expr.Literal:
		return e.param(patternValue(v.Val, lookup)), nil
	case expr.FieldRef:
		col, ok := e.q.ColumnFor(v)
		if !ok {
			return "", compileErrorf("field %q has no resolved column; builder invariant broken", v.PathKey())
		}
		return e.column(col), nil
	case expr.BinaryArith:
		left, err := e.compileOperand(v.Left, expr.Exact)
		if err != nil {
			return "", err
		}
		right, err := e.compileOperand(v.Right, expr.Exact)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, v.Op, right), nil
	default:
		return "", compileErrorf("unknown operand type %T", operand)
	}
}

func (e *emitter) compileInOperand(operand expr.Expression) (string, error) {
	lit, ok := operand.(expr.Literal)
	if !ok {
		return "", compileErrorf("in lookup requires a literal value set, got %T", operand)
	}
	rv := reflect.ValueOf(lit.Val)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", compileErrorf("in lookup requires a slice operand, got %T", lit.Val)
	}
	placeholders := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		placeholders[i] = e.param(rv.Index(i).Interface())
	}
	return strings.Join(placeholders, ", "), nil
}

// likeEscaper neutralizes LIKE metacharacters in user operands. The
// lookup templates carry a matching ESCAPE '\' clause.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// patternValue wraps substring and prefix operands in LIKE wildcards,
// escaping any metacharacters the operand itself carries so it always
// matches literally.
func patternValue(val any, lookup expr.Lookup) any {
	switch lookup {
	case expr.Contains, expr.IContains:
		return "%" + likeEscaper.Replace(fmt.Sprint(val)) + "%"
	case expr.StartsWith:
		return likeEscaper.Replace(fmt.Sprint(val)) + "%"
	}
	return val
}

// truthy reports whether an isnull operand selects IS NULL.
func truthy(operand expr.Expression) bool {
	lit, ok := operand.(expr.Literal)
	if !ok {
		return false
	}
	switch v := lit.Val.(type) {
	case bool:
		return v
	case nil:
		return false
	case int:
		return v != 0
	default:
		return true
	}
}
