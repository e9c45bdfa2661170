package sqlgen

import (
	"fmt"
	"strings"

	"github.com/garrypolley/djorm/ir"
)

// Assignment is one column update in an UPDATE statement.
type Assignment struct {
	// Column is the column name on the root table.
	Column string
	// Value is the new value, passed as a parameter.
	Value any
}

// CompileInsert emits an INSERT for one row. Values are parameterized.
func (c *Compiler) CompileInsert(table string, columns []string, values []any) (string, []any, error) {
	if len(columns) == 0 || len(columns) != len(values) {
		return "", nil, compileErrorf("insert into %s: %d columns, %d values", table, len(columns), len(values))
	}
	e := &emitter{d: c.dialect}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(values))
	for i, col := range columns {
		quoted[i] = e.d.quote(col)
		placeholders[i] = e.param(values[i])
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		e.d.quote(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	return sql, e.finishedParams(), nil
}

// CompileUpdate emits an UPDATE over the query's WHERE clause. Updates
// across joins are not supported; filter on root-entity fields only.
// SET parameters precede WHERE parameters in the result.
func (c *Compiler) CompileUpdate(q *ir.Query, sets []Assignment) (string, []any, error) {
	if len(sets) == 0 {
		return "", nil, compileErrorf("update %s: no assignments", q.Root.Table)
	}
	if len(q.Joins) > 0 {
		return "", nil, compileErrorf("update %s: filters must not traverse relations", q.Root.Table)
	}
	e := &emitter{d: c.dialect, q: q}

	assigns := make([]string, len(sets))
	for i, set := range sets {
		assigns[i] = fmt.Sprintf("%s = %s", e.d.quote(set.Column), e.param(set.Value))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", e.d.quote(q.Root.Table), strings.Join(assigns, ", "))
	if err := e.writeWhere(&sb); err != nil {
		return "", nil, err
	}
	return sb.String(), e.finishedParams(), nil
}

// CompileDelete emits a DELETE over the query's WHERE clause. Deletes
// across joins are not supported.
func (c *Compiler) CompileDelete(q *ir.Query) (string, []any, error) {
	if len(q.Joins) > 0 {
		return "", nil, compileErrorf("delete %s: filters must not traverse relations", q.Root.Table)
	}
	e := &emitter{d: c.dialect, q: q}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE FROM %s", e.d.quote(q.Root.Table))
	if err := e.writeWhere(&sb); err != nil {
		return "", nil, err
	}
	return sb.String(), e.finishedParams(), nil
}
