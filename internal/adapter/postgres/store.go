package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is used when a source does not name one.
const DefaultSchema = "public"

// Options configure a Store.
type Options struct {
	Schema       string
	QueryTimeout time.Duration
	Pool         PoolSettings
	Auditor      port.QueryAuditor
}

// Store implements port.Store over a pgx pool. Tables are resolved within a
// single schema.
type Store struct {
	pool   *pgxpool.Pool
	exec   *Executor
	schema string
}

var _ port.Store = (*Store)(nil)

// Open connects to src and returns a Store that owns the pool.
func Open(ctx context.Context, src domain.Source, opts Options) (*Store, error) {
	pool, err := NewPool(ctx, src.DSN, opts.Pool)
	if err != nil {
		return nil, err
	}
	if src.Schema != "" {
		opts.Schema = src.Schema
	}
	return NewStore(pool, src.Name, opts), nil
}

// NewStore wraps an existing pool. Close closes the pool.
func NewStore(pool *pgxpool.Pool, source string, opts Options) *Store {
	schema := opts.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	return &Store{
		pool:   pool,
		exec:   NewExecutor(pool, domain.NewPgQueryValidator(), opts.Auditor, source, opts.QueryTimeout),
		schema: schema,
	}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := s.exec.Query(ctx, "list_tables", queryListTables, []any{s.schema}, func(v []any) error {
		tables = append(tables, v[0].(string))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

func (s *Store) ListColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	var cols []domain.ColumnDescriptor
	err := s.exec.Query(ctx, "list_columns", queryColumns, []any{s.schema, table}, func(v []any) error {
		col := domain.ColumnDescriptor{
			Name:            v[0].(string),
			DeclaredType:    v[1].(string),
			DeclaredSize:    optionalInt(v[2]),
			Nullable:        v[3].(bool),
			OrdinalPosition: int(v[4].(int32)),
			DefaultValue:    optionalString(v[5]),
			Remarks:         optionalString(v[6]),
		}
		cols = append(cols, col)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing columns of %q: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q %w in schema %q", table, domain.ErrNotFound, s.schema)
	}
	return cols, nil
}

func (s *Store) PrimaryKey(ctx context.Context, table string) ([]domain.PrimaryKeyColumn, error) {
	var pk []domain.PrimaryKeyColumn
	err := s.exec.Query(ctx, "primary_key", queryPrimaryKey, []any{s.schema, table}, func(v []any) error {
		pk = append(pk, domain.PrimaryKeyColumn{
			Column:      v[0].(string),
			KeySequence: int(v[1].(int32)),
			Name:        v[2].(string),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading primary key of %q: %w", table, err)
	}
	return pk, nil
}

func (s *Store) ForeignKeys(ctx context.Context, table string) ([]domain.ForeignKey, error) {
	var fks []domain.ForeignKey
	err := s.exec.Query(ctx, "foreign_keys", queryForeignKeys, []any{s.schema, table}, func(v []any) error {
		fks = append(fks, domain.ForeignKey{
			Name:             v[0].(string),
			Column:           v[1].(string),
			ReferencedTable:  v[2].(string),
			ReferencedColumn: v[3].(string),
			KeySequence:      int(v[4].(int32)),
			ReferencedKey:    v[5].(string),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %q: %w", table, err)
	}
	return fks, nil
}

func (s *Store) Indexes(ctx context.Context, table string) ([]domain.Index, error) {
	var indexes []domain.Index
	err := s.exec.Query(ctx, "indexes", queryIndexes, []any{s.schema, table}, func(v []any) error {
		indexes = domain.AppendIndexColumn(indexes, v[0].(string), v[1].(bool), v[2].(string), domain.IndexColumn{
			Column:     v[3].(string),
			Position:   int(v[4].(int32)),
			Descending: v[5].(bool),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading indexes of %q: %w", table, err)
	}
	return indexes, nil
}

func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	sql := fmt.Sprintf(queryCountRows, qualifiedName(s.schema, table))
	n, err := s.scalar(ctx, "count_rows", sql)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %q: %w", table, err)
	}
	return n, nil
}

func (s *Store) CountNonNull(ctx context.Context, table, column string) (int64, error) {
	sql := fmt.Sprintf(queryCountNonNull, quoteIdent(column), qualifiedName(s.schema, table))
	n, err := s.scalar(ctx, "count_non_null", sql)
	if err != nil {
		return 0, fmt.Errorf("counting values of %q.%q: %w", table, column, err)
	}
	return n, nil
}

func (s *Store) ValueCounts(ctx context.Context, table, column string) ([]domain.RawValueCount, error) {
	sql := fmt.Sprintf(queryValueCounts, quoteIdent(column), qualifiedName(s.schema, table))
	var groups []domain.RawValueCount
	err := s.exec.Query(ctx, "value_counts", sql, nil, func(v []any) error {
		groups = append(groups, domain.RawValueCount{Value: v[0], Count: v[1].(int64)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("grouping values of %q.%q: %w", table, column, err)
	}
	return groups, nil
}

func (s *Store) ScanRows(ctx context.Context, table string, columns []string, fn func(values []any) error) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: scan of %q needs at least one column", domain.ErrQuery, table)
	}
	sql := fmt.Sprintf(queryScanRows, quoteIdents(columns), qualifiedName(s.schema, table))
	if err := s.exec.Query(ctx, "scan_rows", sql, nil, fn); err != nil {
		return fmt.Errorf("scanning %q: %w", table, err)
	}
	return nil
}

func (s *Store) scalar(ctx context.Context, op, sql string) (int64, error) {
	var n int64
	err := s.exec.Query(ctx, op, sql, nil, func(v []any) error {
		n = v[0].(int64)
		return nil
	})
	return n, err
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalInt(v any) *int64 {
	n, ok := v.(int64)
	if !ok {
		return nil
	}
	return &n
}
