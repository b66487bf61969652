package sqlstore

import (
	"context"
	"errors"
	"strings"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

// dialect holds what differs between the database/sql backends: identifier
// quoting, catalog queries, and recognising missing-object errors.
type dialect interface {
	name() string
	quote(ident string) string
	// qualify renders a table reference inside the store's schema.
	qualify(table string) string
	// column renders a column reference of table for select lists and
	// GROUP BY.
	column(table, col string) string
	// count renders an aggregate row count over expr.
	count(expr string) string

	listTables(ctx context.Context, r *runner) ([]string, error)
	listColumns(ctx context.Context, r *runner, table string) ([]domain.ColumnDescriptor, error)
	primaryKey(ctx context.Context, r *runner, table string) ([]domain.PrimaryKeyColumn, error)
	foreignKeys(ctx context.Context, r *runner, table string) ([]domain.ForeignKey, error)
	indexes(ctx context.Context, r *runner, table string) ([]domain.Index, error)

	notFound(err error) bool
}

// quoteWith wraps ident in open/close, doubling any embedded close rune.
func quoteWith(ident, open, close string) string {
	return open + strings.ReplaceAll(ident, close, close+close) + close
}

func isTagged(err error) bool {
	for _, known := range []error{domain.ErrQuery, domain.ErrNotFound, domain.ErrConnection, domain.ErrConfiguration} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

func optional[T any](v T, valid bool) *T {
	if !valid {
		return nil
	}
	return &v
}
