package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

// runner executes statements against a database/sql pool, applying the
// per-statement timeout and reporting every statement to the auditor.
type runner struct {
	db       *sql.DB
	auditor  port.QueryAuditor
	source   string
	timeout  time.Duration
	notFound func(error) bool
}

// query runs stmt and calls scan once per row.
func (r *runner) query(ctx context.Context, op, stmt string, args []any, scan func(*sql.Rows) error) error {
	start := time.Now()
	n, err := r.run(ctx, stmt, args, scan)
	err = r.classify(err)

	r.auditor.Record(ctx, port.AuditEntry{
		Source:       r.source,
		Operation:    op,
		SQL:          stmt,
		RowsReturned: n,
		DurationMS:   time.Since(start).Milliseconds(),
		Err:          err,
	})
	return err
}

func (r *runner) run(ctx context.Context, stmt string, args []any, scan func(*sql.Rows) error) (int, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
		if err := scan(rows); err != nil {
			return n, err
		}
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterating rows: %w", err)
	}
	return n, nil
}

// values runs stmt and passes each row as a slice of driver values. The
// slice is reused between rows.
func (r *runner) values(ctx context.Context, op, stmt string, width int, fn func([]any) error) error {
	vals := make([]any, width)
	ptrs := make([]any, width)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	return r.query(ctx, op, stmt, nil, func(rows *sql.Rows) error {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}
		return fn(vals)
	})
}

func (r *runner) classify(err error) error {
	if err == nil {
		return nil
	}
	if isTagged(err) {
		return err
	}
	if r.notFound != nil && r.notFound(err) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrQuery, err)
}
