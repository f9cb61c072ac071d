package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/teemow/queryexport/internal/logging"
)

// conn is the subset of *pgx.Conn the executor uses.
type conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// connectFunc opens a new session for one Run call.
type connectFunc func(ctx context.Context, cfg *pgx.ConnConfig) (conn, error)

func pgxConnect(ctx context.Context, cfg *pgx.ConnConfig) (conn, error) {
	return pgx.ConnectConfig(ctx, cfg)
}

// Executor runs queries on a fresh connection per call.
type Executor struct {
	config  *pgx.ConnConfig
	connect connectFunc
	logger  *slog.Logger
}

// NewExecutor parses connString once and returns an Executor that connects
// with it on every Run. No connection is opened here.
func NewExecutor(connString string, logger *slog.Logger) (*Executor, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database connection string: %s", logging.Mask(err.Error()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		config:  cfg,
		connect: pgxConnect,
		logger:  logging.WithService(logger, "database"),
	}, nil
}

// Host returns the configured database host.
func (e *Executor) Host() string {
	return e.config.Host
}

// Run executes sql verbatim and collects every row.
// The connection is closed before Run returns.
func (e *Executor) Run(ctx context.Context, sql string) (*Result, error) {
	c, err := e.connect(ctx, e.config.Copy())
	if err != nil {
		return nil, &ConnectionError{Host: e.config.Host, Err: err}
	}
	defer func() {
		if err := c.Close(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("closing database connection", logging.Err(err))
		}
	}()

	rows, err := c.Query(ctx, sql)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &Result{
		Columns: make([]string, len(fields)),
		Rows:    [][]any{},
	}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &QueryError{Err: err}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}

	e.logger.Debug("query complete", slog.Int("rows", len(res.Rows)), slog.Int("columns", len(res.Columns)))
	return res, nil
}
