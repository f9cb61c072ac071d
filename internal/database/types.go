package database

import (
	"context"
	"fmt"
)

// Result is an ordered set of named columns and the rows returned for them.
// Row order is the order in which the database returned the rows.
type Result struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of data rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result carries no rows.
func (r *Result) Empty() bool {
	return r.RowCount() == 0
}

// Column returns the values of column i in row order.
func (r *Result) Column(i int) []any {
	if r == nil || i < 0 || i >= len(r.Columns) {
		return nil
	}
	out := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		if i < len(row) {
			out = append(out, row[i])
		} else {
			out = append(out, nil)
		}
	}
	return out
}

// Runner executes a query and returns its rows.
type Runner interface {
	Run(ctx context.Context, sql string) (*Result, error)
}

// ConnectionError reports a failure to establish a database session.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to database %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a statement the database rejected or failed to complete.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
