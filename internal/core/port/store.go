package port

import (
	"context"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

// SchemaReader enumerates the structure of one database. Table names are
// unqualified; adapters resolve them within their configured schema.
type SchemaReader interface {
	ListTables(ctx context.Context) ([]string, error)
	// ListColumns fails with domain.ErrNotFound when the table does not exist.
	ListColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error)
	PrimaryKey(ctx context.Context, table string) ([]domain.PrimaryKeyColumn, error)
	ForeignKeys(ctx context.Context, table string) ([]domain.ForeignKey, error)
	Indexes(ctx context.Context, table string) ([]domain.Index, error)
}

// ValueSource runs the aggregate and row queries profiling needs. The core
// never builds SQL; adapters quote every identifier they are given.
type ValueSource interface {
	CountRows(ctx context.Context, table string) (int64, error)
	CountNonNull(ctx context.Context, table, column string) (int64, error)
	// ValueCounts groups the column by value, largest group first. The
	// NULL group has a nil Value.
	ValueCounts(ctx context.Context, table, column string) ([]domain.RawValueCount, error)
	// ScanRows calls fn with the values of columns for every row of table.
	// The slice passed to fn is reused between calls.
	ScanRows(ctx context.Context, table string, columns []string, fn func(values []any) error) error
}

// Store is one open database. Close releases its connections.
type Store interface {
	SchemaReader
	ValueSource
	Close() error
}

// StoreOpener connects to a configured source. Failures wrap
// domain.ErrConnection, or domain.ErrConfiguration when the source itself
// is unusable.
type StoreOpener func(ctx context.Context, src domain.Source) (Store, error)
