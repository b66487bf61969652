package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// forEachRow calls fn with the decoded values of every row and returns the
// number of rows seen.
func forEachRow(rows pgx.Rows, fn func(values []any) error) (int, error) {
	n := 0
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return n, fmt.Errorf("reading row values: %w", err)
		}
		n++
		if err := fn(vals); err != nil {
			return n, err
		}
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("iterating rows: %w", err)
	}
	return n, nil
}
