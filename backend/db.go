package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrClosed is returned when an operation is attempted on a closed DB.
var ErrClosed = errors.New("backend: database is closed")

// DB is the database/sql backed Executor. It relies on database/sql
// for pooling; the options tune the pool and attach a logger.
type DB struct {
	db     *sql.DB
	log    *slog.Logger
	closed atomic.Bool
}

// Open connects to a database by driver name and DSN. The sqlite
// driver is registered by importing this package.
func Open(driver, dsn string, opts ...Option) (*DB, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if o.maxConns > 0 {
		db.SetMaxOpenConns(o.maxConns)
	}
	if o.maxIdle > 0 {
		db.SetMaxIdleConns(o.maxIdle)
	}
	if o.idleTimeout > 0 {
		db.SetConnMaxIdleTime(o.idleTimeout)
	}
	return &DB{db: db, log: o.logger}, nil
}

// Execute runs a query and returns all rows as generic tuples.
func (d *DB) Execute(ctx context.Context, query string, params []any) ([][]any, error) {
	iter, err := d.ExecuteStream(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var rows [][]any
	for iter.Next() {
		rows = append(rows, iter.Row())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecuteStream runs a query and returns a row iterator.
func (d *DB) ExecuteStream(ctx context.Context, query string, params []any) (Rows, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	d.trace(ctx, query, params)
	rows, err := d.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &RowIter{rows: rows, width: len(cols)}, nil
}

// Exec runs a statement and returns the affected row count.
func (d *DB) Exec(ctx context.Context, query string, params []any) (int64, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}
	d.trace(ctx, query, params)
	result, err := d.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close releases the underlying connection pool. It is safe to call
// concurrently with in-flight queries and more than once.
func (d *DB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}

func (d *DB) trace(ctx context.Context, query string, params []any) {
	if d.log == nil {
		return
	}
	d.log.DebugContext(ctx, "execute",
		slog.String("query_id", uuid.NewString()),
		slog.String("sql", query),
		slog.Int("params", len(params)))
}

// RowIter yields query rows one at a time. Use Next until it reports
// false, then check Err.
type RowIter struct {
	rows  *sql.Rows
	width int
	row   []any
	err   error
}

// Next advances to the next row, reporting false at the end or on
// error.
func (it *RowIter) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	values := make([]any, it.width)
	ptrs := make([]any, it.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		it.err = err
		return false
	}
	it.row = values
	return true
}

// Row returns the current row tuple. Valid after a true Next.
func (it *RowIter) Row() []any { return it.row }

// Err returns the first error encountered during iteration.
func (it *RowIter) Err() error { return it.err }

// Close releases the iterator's resources.
func (it *RowIter) Close() error { return it.rows.Close() }
