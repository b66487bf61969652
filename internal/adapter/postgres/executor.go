package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/strata/internal/core/port"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs profiling statements. Each statement is validated, runs in
// its own read-only transaction with a server-side timeout, and is reported
// to the auditor whether it succeeds or not.
type Executor struct {
	pool         *pgxpool.Pool
	validator    port.QueryValidator
	auditor      port.QueryAuditor
	source       string
	queryTimeout time.Duration
}

func NewExecutor(pool *pgxpool.Pool, validator port.QueryValidator, auditor port.QueryAuditor, source string, queryTimeout time.Duration) *Executor {
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	return &Executor{
		pool:         pool,
		validator:    validator,
		auditor:      auditor,
		source:       source,
		queryTimeout: queryTimeout,
	}
}

// Query runs sql and calls fn for every row. op names the statement in the
// audit log.
func (e *Executor) Query(ctx context.Context, op, sql string, args []any, fn func(values []any) error) error {
	start := time.Now()
	rows, err := e.query(ctx, sql, args, fn)
	err = classifyError(err)

	e.auditor.Record(ctx, port.AuditEntry{
		Source:       e.source,
		Operation:    op,
		SQL:          sql,
		RowsReturned: rows,
		DurationMS:   time.Since(start).Milliseconds(),
		Err:          err,
	})
	return err
}

func (e *Executor) query(ctx context.Context, sql string, args []any, fn func([]any) error) (int, error) {
	if e.validator != nil {
		if err := e.validator.Validate(sql); err != nil {
			return 0, err
		}
	}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL scopes the timeout to this transaction so the server
	// cancels the statement even if the client stops waiting first.
	if e.queryTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", e.queryTimeout.Milliseconds())); err != nil {
			return 0, fmt.Errorf("setting statement timeout: %w", err)
		}
	}

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("executing query: %w", err)
	}
	n, err := forEachRow(rows, fn)
	rows.Close()
	if err != nil {
		return n, err
	}

	if err := tx.Commit(ctx); err != nil {
		return n, fmt.Errorf("committing transaction: %w", err)
	}
	return n, nil
}
