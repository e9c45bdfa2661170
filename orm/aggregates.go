package orm

import (
	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
)

// AggregateExpr is an aggregate over a field path, built by the
// package-level constructors and named with As.
type AggregateExpr struct {
	// Agg is the aggregate function.
	Agg ir.Aggregate
	// Ref is the aggregated field. Empty with Agg == Count means
	// COUNT(*).
	Ref expr.FieldRef
}

// As names the aggregate, producing the value Annotate and Aggregate
// accept.
func (a AggregateExpr) As(alias string) NamedAggregate {
	return NamedAggregate{Alias: alias, AggregateExpr: a}
}

// NamedAggregate is an aggregate bound to its output alias.
type NamedAggregate struct {
	AggregateExpr
	// Alias is the output column name of the aggregate.
	Alias string
}

// Max aggregates the maximum of a field path.
func Max(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.Max, Ref: expr.FPath(path)}
}

// Min aggregates the minimum of a field path.
func Min(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.Min, Ref: expr.FPath(path)}
}

// Avg aggregates the mean of a field path.
func Avg(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.Avg, Ref: expr.FPath(path)}
}

// Sum aggregates the sum of a field path.
func Sum(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.Sum, Ref: expr.FPath(path)}
}

// Count aggregates the count of non-null values of a field path.
func Count(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.Count, Ref: expr.FPath(path)}
}

// CountAll counts rows (COUNT(*)).
func CountAll() AggregateExpr {
	return AggregateExpr{Agg: ir.Count}
}

// StdDev aggregates the standard deviation of a field path.
func StdDev(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.StdDev, Ref: expr.FPath(path)}
}

// Variance aggregates the variance of a field path.
func Variance(path string) AggregateExpr {
	return AggregateExpr{Agg: ir.Variance, Ref: expr.FPath(path)}
}
