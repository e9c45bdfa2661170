// Package djorm translates object-level query expressions into
// parameterized SQL.
//
// Define your schema as Go structs with struct tags (or in the schema
// DSL), and get chainable lazy querysets, relation traversal with
// automatic joins, aggregates, and dialect-aware SQL compilation
// without writing raw SQL.
//
// The module is organized into seven packages:
//
//   - [github.com/garrypolley/djorm/schema] — entity definitions, the model registry, struct-tag extraction and the schema DSL parser
//   - [github.com/garrypolley/djorm/expr] — field references, arithmetic and boolean filter expressions
//   - [github.com/garrypolley/djorm/ir] — the query intermediate representation and the builder that resolves paths to joins
//   - [github.com/garrypolley/djorm/sqlgen] — dialect tables and the IR-to-SQL compiler
//   - [github.com/garrypolley/djorm/orm] — managers and querysets, the user-facing API
//   - [github.com/garrypolley/djorm/backend] — the database/sql executor and connection configuration
//   - [github.com/garrypolley/djorm/qcache] — result-row caching keyed by compiled query
//
// Every package except backend compiles and tests without a running
// database.
package djorm
