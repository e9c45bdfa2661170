package orm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"sync"

	"github.com/garrypolley/djorm/backend"
	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
	"github.com/garrypolley/djorm/qcache"
	"github.com/garrypolley/djorm/schema"
	"github.com/garrypolley/djorm/sqlgen"
)

// evalState holds the compute-once materialization of a queryset.
// Chaining operations never share state between the old and the new
// queryset; only terminal operations on the same value reuse it.
type evalState[T any] struct {
	mu      sync.Mutex
	done    bool
	results []*T
	err     error
}

// Queryset is a lazy, immutable description of a query. Chaining
// operations return a new queryset and never touch the database;
// terminal operations compile and dispatch. Once a queryset has
// materialized its results, repeated terminal calls on the same value
// are served from that cache without further dispatches.
type Queryset[T any] struct {
	mgr         *Manager[T]
	filters     []expr.Node
	annotations []NamedAggregate
	ordering    []string
	limit       int
	offset      int
	hasLimit    bool
	hasOffset   bool

	state *evalState[T]
}

func (qs *Queryset[T]) clone() *Queryset[T] {
	dup := &Queryset[T]{
		mgr:       qs.mgr,
		limit:     qs.limit,
		offset:    qs.offset,
		hasLimit:  qs.hasLimit,
		hasOffset: qs.hasOffset,
		state:     &evalState[T]{},
	}
	dup.filters = append(dup.filters, qs.filters...)
	dup.annotations = append(dup.annotations, qs.annotations...)
	dup.ordering = append(dup.ordering, qs.ordering...)
	return dup
}

// Filter narrows the queryset. Multiple nodes are combined with AND.
func (qs *Queryset[T]) Filter(nodes ...expr.Node) *Queryset[T] {
	dup := qs.clone()
	dup.filters = append(dup.filters, nodes...)
	return dup
}

// Exclude removes rows matching the conjunction of the given nodes.
func (qs *Queryset[T]) Exclude(nodes ...expr.Node) *Queryset[T] {
	dup := qs.clone()
	dup.filters = append(dup.filters, expr.Not(expr.And(nodes...)))
	return dup
}

// Annotate attaches aggregate columns to each returned row. When
// annotations are present the query groups by the root entity's
// columns.
func (qs *Queryset[T]) Annotate(aggs ...NamedAggregate) *Queryset[T] {
	dup := qs.clone()
	dup.annotations = append(dup.annotations, aggs...)
	return dup
}

// OrderBy sets the ordering. A leading "-" on a path means descending,
// so OrderBy("-age", "name") sorts by age descending then name
// ascending. Calling OrderBy replaces any previous ordering.
func (qs *Queryset[T]) OrderBy(paths ...string) *Queryset[T] {
	dup := qs.clone()
	dup.ordering = append([]string(nil), paths...)
	return dup
}

// Limit caps the number of returned rows.
func (qs *Queryset[T]) Limit(n int) *Queryset[T] {
	dup := qs.clone()
	dup.limit = n
	dup.hasLimit = true
	return dup
}

// Offset skips the first n rows.
func (qs *Queryset[T]) Offset(n int) *Queryset[T] {
	dup := qs.clone()
	dup.offset = n
	dup.hasOffset = true
	return dup
}

func (qs *Queryset[T]) build() (*ir.Query, error) {
	b := ir.NewBuilder(qs.mgr.registry, qs.mgr.entity)
	if qs.mgr.base != nil {
		b.Filter(qs.mgr.base)
	}
	for _, n := range qs.filters {
		b.Filter(n)
	}
	for _, a := range qs.annotations {
		b.Annotate(a.Alias, a.Agg, a.Ref)
	}
	for _, p := range qs.ordering {
		desc := false
		if len(p) > 0 && p[0] == '-' {
			desc = true
			p = p[1:]
		}
		b.OrderBy(expr.FPath(p), desc)
	}
	if qs.hasLimit {
		b.Limit(qs.limit)
	}
	if qs.hasOffset {
		b.Offset(qs.offset)
	}
	return b.Build()
}

// SQL compiles the queryset and returns the statement and parameters
// without dispatching it. Useful for logging and debugging.
func (qs *Queryset[T]) SQL() (string, []any, error) {
	q, err := qs.build()
	if err != nil {
		return "", nil, err
	}
	return qs.mgr.compiler.Compile(q)
}

// All materializes the queryset. The first call compiles, dispatches
// and hydrates; later calls on the same queryset value return the
// cached slice. Concurrent callers block until the first evaluation
// finishes.
func (qs *Queryset[T]) All(ctx context.Context) ([]*T, error) {
	st := qs.state
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.done {
		return st.results, st.err
	}
	st.results, st.err = qs.fetch(ctx)
	st.done = true
	return st.results, st.err
}

func (qs *Queryset[T]) fetch(ctx context.Context) ([]*T, error) {
	q, err := qs.build()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", qs.mgr.entity.Name, err)
	}
	query, params, err := qs.mgr.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", qs.mgr.entity.Name, err)
	}

	var key string
	if qs.mgr.cache != nil {
		key = qcache.Key(query, params)
		if rows, ok := qs.mgr.cache.Get(key); ok {
			return qs.hydrateAll(rows)
		}
	}

	rows, err := qs.mgr.exec.Execute(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", qs.mgr.entity.Name, err)
	}
	if qs.mgr.cache != nil {
		// The rows are already in hand, so a cache write failure only
		// costs the next identical query a dispatch.
		if err := qs.mgr.cache.Put(key, rows); err != nil && qs.mgr.log != nil {
			qs.mgr.log.WarnContext(ctx, "cache put failed",
				slog.String("entity", qs.mgr.entity.Name),
				slog.String("error", err.Error()))
		}
	}
	return qs.hydrateAll(rows)
}

func (qs *Queryset[T]) aliases() []string {
	if len(qs.annotations) == 0 {
		return nil
	}
	names := make([]string, len(qs.annotations))
	for i, a := range qs.annotations {
		names[i] = a.Alias
	}
	return names
}

func (qs *Queryset[T]) hydrateAll(rows [][]any) ([]*T, error) {
	aliases := qs.aliases()
	results := make([]*T, 0, len(rows))
	for _, row := range rows {
		inst, err := hydrate[T](qs.mgr.info, row, aliases)
		if err != nil {
			return nil, err
		}
		results = append(results, inst)
	}
	return results, nil
}

// Count returns the number of matching rows. When the queryset has
// already materialized, the length of the cached result is returned
// without a dispatch; otherwise a COUNT(*) query runs.
func (qs *Queryset[T]) Count(ctx context.Context) (int, error) {
	st := qs.state
	st.mu.Lock()
	if st.done {
		results, err := st.results, st.err
		st.mu.Unlock()
		if err != nil {
			return 0, err
		}
		return len(results), nil
	}
	st.mu.Unlock()

	q, err := qs.build()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", qs.mgr.entity.Name, err)
	}
	query, params, err := qs.mgr.compiler.CompileCount(q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", qs.mgr.entity.Name, err)
	}
	rows, err := qs.mgr.exec.Execute(ctx, query, params)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", qs.mgr.entity.Name, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, fmt.Errorf("count %s: empty result", qs.mgr.entity.Name)
	}
	n, err := toInt64(rows[0][0])
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", qs.mgr.entity.Name, err)
	}
	return int(n), nil
}

// Exists reports whether any row matches.
func (qs *Queryset[T]) Exists(ctx context.Context) (bool, error) {
	st := qs.state
	st.mu.Lock()
	if st.done {
		results, err := st.results, st.err
		st.mu.Unlock()
		if err != nil {
			return false, err
		}
		return len(results) > 0, nil
	}
	st.mu.Unlock()

	limited := qs.Limit(1)
	q, err := limited.build()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", qs.mgr.entity.Name, err)
	}
	query, params, err := qs.mgr.compiler.Compile(q)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", qs.mgr.entity.Name, err)
	}
	rows, err := qs.mgr.exec.Execute(ctx, query, params)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", qs.mgr.entity.Name, err)
	}
	return len(rows) > 0, nil
}

// Aggregate computes the given aggregates over the whole queryset,
// collapsing it to a single row. The result maps each alias to its
// value.
func (qs *Queryset[T]) Aggregate(ctx context.Context, aggs ...NamedAggregate) (map[string]any, error) {
	b := ir.NewBuilder(qs.mgr.registry, qs.mgr.entity)
	if qs.mgr.base != nil {
		b.Filter(qs.mgr.base)
	}
	for _, n := range qs.filters {
		b.Filter(n)
	}
	for _, a := range aggs {
		b.Annotate(a.Alias, a.Agg, a.Ref)
	}
	b.AggregatesOnly()
	q, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", qs.mgr.entity.Name, err)
	}
	query, params, err := qs.mgr.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", qs.mgr.entity.Name, err)
	}
	rows, err := qs.mgr.exec.Execute(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", qs.mgr.entity.Name, err)
	}
	out := make(map[string]any, len(aggs))
	if len(rows) == 0 {
		for _, a := range aggs {
			out[a.Alias] = nil
		}
		return out, nil
	}
	row := rows[0]
	if len(row) != len(aggs) {
		return nil, fmt.Errorf("aggregate %s: got %d columns, want %d",
			qs.mgr.entity.Name, len(row), len(aggs))
	}
	for i, a := range aggs {
		out[a.Alias] = row[i]
	}
	return out, nil
}

// Stream yields hydrated instances one at a time without materializing
// the whole result set. When the executor supports streaming, rows are
// scanned incrementally; otherwise Stream falls back to All. The
// stream does not populate the queryset's cache.
func (qs *Queryset[T]) Stream(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		streamer, ok := qs.mgr.exec.(backend.StreamExecutor)
		if !ok {
			results, err := qs.All(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, r := range results {
				if !yield(r, nil) {
					return
				}
			}
			return
		}

		q, err := qs.build()
		if err != nil {
			yield(nil, fmt.Errorf("stream %s: %w", qs.mgr.entity.Name, err))
			return
		}
		query, params, err := qs.mgr.compiler.Compile(q)
		if err != nil {
			yield(nil, fmt.Errorf("stream %s: %w", qs.mgr.entity.Name, err))
			return
		}
		it, err := streamer.ExecuteStream(ctx, query, params)
		if err != nil {
			yield(nil, fmt.Errorf("stream %s: %w", qs.mgr.entity.Name, err))
			return
		}
		defer it.Close()
		aliases := qs.aliases()
		for it.Next() {
			inst, err := hydrate[T](qs.mgr.info, it.Row(), aliases)
			if !yield(inst, err) {
				return
			}
			if err != nil {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, fmt.Errorf("stream %s: %w", qs.mgr.entity.Name, err))
		}
	}
}

// Update sets the given field values on every matching row and returns
// the affected row count. The filters must stay on the root entity;
// updates across joins are rejected at compile time.
func (qs *Queryset[T]) Update(ctx context.Context, values map[string]any) (int64, error) {
	q, err := qs.build()
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", qs.mgr.entity.Name, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]sqlgen.Assignment, 0, len(names))
	for _, name := range names {
		f, ok := qs.mgr.entity.Field(name)
		if !ok {
			return 0, fmt.Errorf("update %s: %w", qs.mgr.entity.Name,
				&schema.UnknownFieldError{Entity: qs.mgr.entity.Name, Name: name})
		}
		sets = append(sets, sqlgen.Assignment{Column: f.Column, Value: values[name]})
	}

	query, params, err := qs.mgr.compiler.CompileUpdate(q, sets)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", qs.mgr.entity.Name, err)
	}
	return qs.mgr.exec.Exec(ctx, query, params)
}

// Delete removes every matching row and returns the affected row
// count. Filters crossing a relation are rejected at compile time.
func (qs *Queryset[T]) Delete(ctx context.Context) (int64, error) {
	q, err := qs.build()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", qs.mgr.entity.Name, err)
	}
	query, params, err := qs.mgr.compiler.CompileDelete(q)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", qs.mgr.entity.Name, err)
	}
	return qs.mgr.exec.Exec(ctx, query, params)
}
