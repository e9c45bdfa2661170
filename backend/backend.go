// Package backend executes finished SQL against a database. It owns
// connection management; the query pipeline hands it text plus an
// ordered parameter list and gets row tuples back. Errors pass through
// from the driver unmodified and nothing is retried here.
package backend

import "context"

// Executor runs finished SQL statements. Implementations own
// connection acquisition, any quoting beyond what the compiler already
// applied, and transaction boundaries.
type Executor interface {
	// Execute runs a query and returns all row tuples.
	Execute(ctx context.Context, query string, params []any) ([][]any, error)
	// Exec runs a statement and returns the affected row count.
	Exec(ctx context.Context, query string, params []any) (int64, error)
}

// Rows iterates query results one row at a time. Call Next until it
// reports false, then check Err.
type Rows interface {
	Next() bool
	Row() []any
	Err() error
	Close() error
}

// StreamExecutor is implemented by executors that can hand rows back
// one at a time, for bounded-memory iteration over large result sets.
type StreamExecutor interface {
	Executor
	// ExecuteStream runs a query and returns an iterator over its
	// rows. The caller must Close it.
	ExecuteStream(ctx context.Context, query string, params []any) (Rows, error)
}
