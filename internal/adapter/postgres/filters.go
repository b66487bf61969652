package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes mapped to lookup errors.
const (
	undefinedTable  = "42P01"
	undefinedColumn = "42703"
	invalidSchema   = "3F000"
)

// quoteIdent quotes a SQL identifier to prevent injection.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteIdents quotes and joins a column list.
func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// qualifiedName renders schema.table with both parts quoted.
func qualifiedName(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

// classifyError tags a driver error with the domain taxonomy. Missing
// relations and columns are lookups; everything else is a failed query.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{domain.ErrQuery, domain.ErrNotFound, domain.ErrConnection} {
		if errors.Is(err, known) {
			return err
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case undefinedTable, undefinedColumn, invalidSchema:
			return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrQuery, err)
}
