package sqlgen

import (
	"fmt"
	"strings"

	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
)

// DialectMap holds the registered dialects by name.
var DialectMap = map[string]*Dialect{
	"generic":  Default,
	"sqlite":   SQLite,
	"postgres": Postgres,
}

// GetDialect returns the dialect registered under the given name, or
// nil if none matches. Common aliases are recognized.
func GetDialect(name string) *Dialect {
	if d, ok := DialectMap[name]; ok {
		return d
	}
	switch strings.ToLower(name) {
	case "default":
		return Default
	case "postgresql", "pgx":
		return Postgres
	case "sqlite3":
		return SQLite
	}
	return nil
}

func defaultLookups() map[expr.Lookup]string {
	return map[expr.Lookup]string{
		expr.Exact:      "%s = %s",
		expr.IExact:     "UPPER(%s) = UPPER(%s)",
		expr.Gt:         "%s > %s",
		expr.Gte:        "%s >= %s",
		expr.Lt:         "%s < %s",
		expr.Lte:        "%s <= %s",
		expr.In:         "%s IN (%s)",
		expr.Contains:   `%s LIKE %s ESCAPE '\'`,
		expr.IContains:  `UPPER(%s) LIKE UPPER(%s) ESCAPE '\'`,
		expr.StartsWith: `%s LIKE %s ESCAPE '\'`,
	}
}

func defaultAggregates() map[ir.Aggregate]string {
	return map[ir.Aggregate]string{
		ir.Max:      "MAX",
		ir.Min:      "MIN",
		ir.Avg:      "AVG",
		ir.Count:    "COUNT",
		ir.Sum:      "SUM",
		ir.StdDev:   "STDDEV",
		ir.Variance: "VARIANCE",
	}
}

// Default is the generic dialect: printf-style %s placeholders and
// unquoted identifiers.
var Default = &Dialect{
	Name:         "generic",
	Placeholder:  func(int) string { return "%s" },
	Lookups:      defaultLookups(),
	IsNullSQL:    "%s IS NULL",
	IsNotNullSQL: "%s IS NOT NULL",
	Aggregates:   defaultAggregates(),
}

// SQLite uses ? placeholders. STDDEV and VARIANCE require a loaded
// extension; the keywords are kept so an override is a one-liner.
var SQLite = &Dialect{
	Name:         "sqlite",
	Placeholder:  func(int) string { return "?" },
	Lookups:      defaultLookups(),
	IsNullSQL:    "%s IS NULL",
	IsNotNullSQL: "%s IS NOT NULL",
	Aggregates:   defaultAggregates(),
}

// Postgres uses numbered $N placeholders and ILIKE for
// case-insensitive substring matching. iexact stays UPPER equality:
// ILIKE is a pattern match, which is not equality once the operand
// holds metacharacters.
var Postgres = func() *Dialect {
	d := &Dialect{
		Name:         "postgres",
		Placeholder:  func(n int) string { return fmt.Sprintf("$%d", n) },
		Lookups:      defaultLookups(),
		IsNullSQL:    "%s IS NULL",
		IsNotNullSQL: "%s IS NOT NULL",
		Aggregates:   defaultAggregates(),
	}
	d.Lookups[expr.IContains] = `%s ILIKE %s ESCAPE '\'`
	return d
}()
