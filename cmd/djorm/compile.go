package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garrypolley/djorm/expr"
	"github.com/garrypolley/djorm/ir"
	"github.com/garrypolley/djorm/schema"
	"github.com/garrypolley/djorm/sqlgen"
)

// compileOptions holds flags for the compile command.
type compileOptions struct {
	*rootOptions
	order  []string
	limit  int
	offset int
	count  bool
}

func newCompileCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &compileOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-file> <entity> [path__lookup=value ...]",
		Short: "Compile filters over an entity to a SQL statement",
		Long: `Compile filters over an entity to a parameterized SQL statement.

Each positional filter is a field path with an optional lookup suffix
and a value, for example:

  djorm compile app.schema user power_level__gt=9000
  djorm compile app.schema address user__name__iexact=vegeta --dialect sqlite`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts, args[0], args[1], args[2:])
		},
	}

	cmd.Flags().StringSliceVar(&opts.order, "order", nil,
		"order by field paths, prefix with - for descending")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "limit the row count")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "skip leading rows")
	cmd.Flags().BoolVar(&opts.count, "count", false, "emit a COUNT(*) statement")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *compileOptions, schemaPath, entityName string, filters []string) error {
	reg, err := schema.ParseSchemaFile(schemaPath)
	if err != nil {
		return err
	}
	entity, ok := reg.Lookup(entityName)
	if !ok {
		return fmt.Errorf("entity %q is not defined in %s", entityName, schemaPath)
	}

	b := ir.NewBuilder(reg, entity)
	for _, raw := range filters {
		lhs, value, found := strings.Cut(raw, "=")
		if !found {
			return fmt.Errorf("filter %q: want path__lookup=value", raw)
		}
		b.Filter(expr.Q(lhs, parseValue(value)))
	}
	for _, p := range opts.order {
		desc := strings.HasPrefix(p, "-")
		b.OrderBy(expr.FPath(strings.TrimPrefix(p, "-")), desc)
	}
	if opts.limit > 0 {
		b.Limit(opts.limit)
	}
	if opts.offset > 0 {
		b.Offset(opts.offset)
	}

	q, err := b.Build()
	if err != nil {
		return err
	}

	dialect := sqlgen.GetDialect(opts.dialect)
	if dialect == nil && opts.dialect != "default" {
		return fmt.Errorf("unknown dialect %q", opts.dialect)
	}
	compiler := sqlgen.New(dialect)
	var query string
	var params []any
	if opts.count {
		query, params, err = compiler.CompileCount(q)
	} else {
		query, params, err = compiler.Compile(q)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, query)
	for i, p := range params {
		fmt.Fprintf(out, "  $%d = %#v\n", i+1, p)
	}
	return nil
}

// parseValue reads a filter value the way a shell user would write it:
// integers, floats and booleans are detected, everything else stays a
// string. Comma-separated values become a slice for IN lookups.
func parseValue(s string) any {
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		vals := make([]any, len(parts))
		for i, p := range parts {
			vals[i] = parseScalar(p)
		}
		return vals
	}
	return parseScalar(s)
}

func parseScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
