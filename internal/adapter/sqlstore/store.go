// Package sqlstore implements port.Store for the database/sql backends:
// SQL Server, MySQL and SQLite files.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/guillermoBallester/strata/internal/core/port"
)

// Options configure a Store.
type Options struct {
	// Schema is the SQL Server fallback when a source names none. MySQL
	// uses the DSN's database and SQLite the main database.
	Schema       string
	QueryTimeout time.Duration
	MaxOpenConns int
	Auditor      port.QueryAuditor
}

// Store implements port.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	run     *runner
}

var _ port.Store = (*Store)(nil)

// Open connects to src. An unsupported driver or a missing SQLite file is a
// configuration error; anything else that prevents a working connection
// wraps domain.ErrConnection.
func Open(ctx context.Context, src domain.Source, opts Options) (*Store, error) {
	d, driverName, dsn, err := resolve(src, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s database: %w", domain.ErrConnection, d.name(), err)
	}
	switch {
	case d.name() == domain.DriverSQLite:
		db.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pinging %s database (10s timeout): %w", domain.ErrConnection, d.name(), err)
	}

	return newStore(db, d, src.Name, opts), nil
}

func newStore(db *sql.DB, d dialect, source string, opts Options) *Store {
	auditor := opts.Auditor
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	return &Store{
		db:      db,
		dialect: d,
		run: &runner{
			db:       db,
			auditor:  auditor,
			source:   source,
			timeout:  opts.QueryTimeout,
			notFound: d.notFound,
		},
	}
}

func resolve(src domain.Source, opts Options) (dialect, string, string, error) {
	switch src.Driver {
	case domain.DriverSQLServer:
		schema := src.Schema
		if schema == "" {
			schema = opts.Schema
		}
		if schema == "" {
			schema = DefaultSQLServerSchema
		}
		return sqlServer{schema: schema}, "sqlserver", src.DSN, nil
	case domain.DriverMySQL:
		return mySQL{}, "mysql", src.DSN, nil
	case domain.DriverSQLite:
		dsn, err := sqliteDSN(src.DSN)
		return sqlite{}, "sqlite3", dsn, err
	default:
		return nil, "", "", fmt.Errorf("%w: driver %q is not served by sqlstore", domain.ErrConfiguration, src.Driver)
	}
}

// sqliteDSN opens the file read-only. A plain path must exist; the driver
// would otherwise create an empty database.
func sqliteDSN(path string) (string, error) {
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: database file %q does not exist", domain.ErrConfiguration, path)
		}
		return "", fmt.Errorf("%w: database file %q: %w", domain.ErrConfiguration, path, err)
	}
	return "file:" + path + "?mode=ro", nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	tables, err := s.dialect.listTables(ctx, s.run)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

func (s *Store) ListColumns(ctx context.Context, table string) ([]domain.ColumnDescriptor, error) {
	cols, err := s.dialect.listColumns(ctx, s.run, table)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %q: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q %w", table, domain.ErrNotFound)
	}
	return cols, nil
}

func (s *Store) PrimaryKey(ctx context.Context, table string) ([]domain.PrimaryKeyColumn, error) {
	pk, err := s.dialect.primaryKey(ctx, s.run, table)
	if err != nil {
		return nil, fmt.Errorf("reading primary key of %q: %w", table, err)
	}
	return pk, nil
}

func (s *Store) ForeignKeys(ctx context.Context, table string) ([]domain.ForeignKey, error) {
	fks, err := s.dialect.foreignKeys(ctx, s.run, table)
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %q: %w", table, err)
	}
	return fks, nil
}

func (s *Store) Indexes(ctx context.Context, table string) ([]domain.Index, error) {
	indexes, err := s.dialect.indexes(ctx, s.run, table)
	if err != nil {
		return nil, fmt.Errorf("reading indexes of %q: %w", table, err)
	}
	return indexes, nil
}

func (s *Store) CountRows(ctx context.Context, table string) (int64, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s", s.dialect.count("*"), s.dialect.qualify(table))
	n, err := s.scalar(ctx, "count_rows", stmt)
	if err != nil {
		return 0, fmt.Errorf("counting rows of %q: %w", table, err)
	}
	return n, nil
}

func (s *Store) CountNonNull(ctx context.Context, table, column string) (int64, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s", s.dialect.count(s.dialect.column(table, column)), s.dialect.qualify(table))
	n, err := s.scalar(ctx, "count_non_null", stmt)
	if err != nil {
		return 0, fmt.Errorf("counting values of %q.%q: %w", table, column, err)
	}
	return n, nil
}

func (s *Store) ValueCounts(ctx context.Context, table, column string) ([]domain.RawValueCount, error) {
	col := s.dialect.column(table, column)
	stmt := fmt.Sprintf("SELECT %s AS value, %s AS freq FROM %s GROUP BY %s ORDER BY freq DESC",
		col, s.dialect.count("*"), s.dialect.qualify(table), col)

	var groups []domain.RawValueCount
	err := s.run.query(ctx, "value_counts", stmt, nil, func(rows *sql.Rows) error {
		var g domain.RawValueCount
		if err := rows.Scan(&g.Value, &g.Count); err != nil {
			return fmt.Errorf("scanning value group: %w", err)
		}
		groups = append(groups, g)
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
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = s.dialect.column(table, c)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), s.dialect.qualify(table))
	if err := s.run.values(ctx, "scan_rows", stmt, len(columns), fn); err != nil {
		return fmt.Errorf("scanning %q: %w", table, err)
	}
	return nil
}

func (s *Store) scalar(ctx context.Context, op, stmt string) (int64, error) {
	var n int64
	err := s.run.query(ctx, op, stmt, nil, func(rows *sql.Rows) error {
		return rows.Scan(&n)
	})
	return n, err
}
