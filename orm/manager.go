// Package orm provides the user-facing query API: managers bound to a
// registered entity and lazily evaluated, chainable querysets.
package orm

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/garrypolley/djorm/backend"
	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
	"github.com/garrypolley/djorm/qcache"
	"github.com/garrypolley/djorm/schema"
	"github.com/garrypolley/djorm/sqlgen"
)

// Manager is the entry point for querying one entity. It is a value
// holding the entity binding, the executor, the dialect and an
// optional base filter merged into every queryset it produces. A
// scoped manager is just a manager value with a different base filter,
// not a subtype. Managers are immutable and safe for concurrent use.
type Manager[T any] struct {
	registry  *schema.Registry
	info      *schema.ModelInfo
	entity    *schema.Entity
	exec      backend.Executor
	compiler  *sqlgen.Compiler
	base      expr.Node
	normalize func(*T) error
	cache     qcache.Cache
	log       *slog.Logger
}

// ManagerOption configures a Manager at construction time.
type ManagerOption[T any] func(*Manager[T])

// WithRegistry binds the manager to a registry other than the default.
func WithRegistry[T any](r *schema.Registry) ManagerOption[T] {
	return func(m *Manager[T]) { m.registry = r }
}

// WithDialect selects the SQL dialect. Default is sqlgen.Default.
func WithDialect[T any](d *sqlgen.Dialect) ManagerOption[T] {
	return func(m *Manager[T]) { m.compiler = sqlgen.New(d) }
}

// WithBaseFilter pre-filters every queryset the manager produces.
func WithBaseFilter[T any](node expr.Node) ManagerOption[T] {
	return func(m *Manager[T]) { m.base = node }
}

// WithNormalizer installs a validation/normalization function run on
// every instance before Insert and Save dispatch it.
func WithNormalizer[T any](fn func(*T) error) ManagerOption[T] {
	return func(m *Manager[T]) { m.normalize = fn }
}

// WithCache shares materialized rows between querysets that compile to
// the same SQL and parameters.
func WithCache[T any](c qcache.Cache) ManagerOption[T] {
	return func(m *Manager[T]) { m.cache = c }
}

// WithLogger attaches a logger for non-fatal conditions such as cache
// write failures.
func WithLogger[T any](l *slog.Logger) ManagerOption[T] {
	return func(m *Manager[T]) { m.log = l }
}

// NewManager creates a manager for the model type T. T must have been
// registered via schema.RegisterModel first; NewManager panics
// otherwise, since a missing registration is a program bug.
func NewManager[T any](exec backend.Executor, opts ...ManagerOption[T]) *Manager[T] {
	m := &Manager[T]{
		registry: schema.Default(),
		exec:     exec,
		compiler: sqlgen.New(nil),
	}
	for _, opt := range opts {
		opt(m)
	}

	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	info, ok := m.registry.LookupType(t)
	if !ok {
		panic(fmt.Sprintf("djorm: type %s is not registered; call schema.RegisterModel[%s]() first",
			t.Name(), t.Name()))
	}
	m.info = info
	m.entity = info.Entity
	return m
}

// Scoped derives a manager whose querysets always include the given
// filter, combined with any existing base filter.
func (m *Manager[T]) Scoped(node expr.Node) *Manager[T] {
	scoped := *m
	if m.base != nil {
		scoped.base = expr.And(m.base, node)
	} else {
		scoped.base = node
	}
	return &scoped
}

// Entity returns the entity the manager is bound to.
func (m *Manager[T]) Entity() *schema.Entity { return m.entity }

// All returns a queryset over every row the base filter admits.
func (m *Manager[T]) All() *Queryset[T] {
	return &Queryset[T]{mgr: m, state: &evalState[T]{}}
}

// Filter is shorthand for All().Filter(nodes...).
func (m *Manager[T]) Filter(nodes ...expr.Node) *Queryset[T] {
	return m.All().Filter(nodes...)
}

// Get returns the single row matching the filters. It returns
// *NotFoundError when nothing matches and *NotUniqueError when more
// than one row does.
func (m *Manager[T]) Get(ctx context.Context, nodes ...expr.Node) (*T, error) {
	results, err := m.Filter(nodes...).Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, &NotFoundError{TypeName: m.entity.Name}
	case 1:
		return results[0], nil
	default:
		return nil, &NotUniqueError{TypeName: m.entity.Name, Count: len(results)}
	}
}

// Insert persists a new instance. The normalizer, if any, runs first;
// this is the hook for business-rule clamping before dispatch. The
// primary key column is skipped when its field is zero, leaving it to
// the database.
func (m *Manager[T]) Insert(ctx context.Context, instance *T) error {
	if instance == nil {
		return fmt.Errorf("insert %s: instance must not be nil", m.entity.Name)
	}
	if m.normalize != nil {
		if err := m.normalize(instance); err != nil {
			return fmt.Errorf("insert %s: %w", m.entity.Name, err)
		}
	}

	v := reflect.ValueOf(instance).Elem()
	var columns []string
	var values []any
	for _, f := range m.entity.Fields {
		idx, ok := m.info.FieldIndex[f.Name]
		if !ok {
			continue
		}
		fv := v.Field(idx)
		if f.PrimaryKey && fv.IsZero() {
			continue
		}
		columns = append(columns, f.Column)
		values = append(values, fieldValue(fv))
	}

	query, params, err := m.compiler.CompileInsert(m.entity.Table, columns, values)
	if err != nil {
		return fmt.Errorf("insert %s: %w", m.entity.Name, err)
	}
	if _, err := m.exec.Exec(ctx, query, params); err != nil {
		return fmt.Errorf("insert %s: %w", m.entity.Name, err)
	}
	return nil
}

// Save updates an existing instance by primary key. The normalizer, if
// any, runs first.
func (m *Manager[T]) Save(ctx context.Context, instance *T) error {
	if instance == nil {
		return fmt.Errorf("save %s: instance must not be nil", m.entity.Name)
	}
	if m.normalize != nil {
		if err := m.normalize(instance); err != nil {
			return fmt.Errorf("save %s: %w", m.entity.Name, err)
		}
	}

	pk, ok := m.entity.PrimaryKey()
	if !ok {
		return fmt.Errorf("save %s: entity has no primary key", m.entity.Name)
	}
	v := reflect.ValueOf(instance).Elem()
	pkIdx, ok := m.info.FieldIndex[pk.Name]
	if !ok {
		return fmt.Errorf("save %s: primary key %s has no struct field", m.entity.Name, pk.Name)
	}

	var sets []sqlgen.Assignment
	for _, f := range m.entity.Fields {
		if f.PrimaryKey {
			continue
		}
		idx, ok := m.info.FieldIndex[f.Name]
		if !ok {
			continue
		}
		sets = append(sets, sqlgen.Assignment{Column: f.Column, Value: fieldValue(v.Field(idx))})
	}

	builder := ir.NewBuilder(m.registry, m.entity)
	builder.Filter(expr.Condition{
		Ref:     expr.F(pk.Name),
		Lookup:  expr.Exact,
		Operand: expr.Literal{Val: fieldValue(v.Field(pkIdx))},
	})
	q, err := builder.Build()
	if err != nil {
		return fmt.Errorf("save %s: %w", m.entity.Name, err)
	}
	query, params, err := m.compiler.CompileUpdate(q, sets)
	if err != nil {
		return fmt.Errorf("save %s: %w", m.entity.Name, err)
	}
	if _, err := m.exec.Exec(ctx, query, params); err != nil {
		return fmt.Errorf("save %s: %w", m.entity.Name, err)
	}
	return nil
}
