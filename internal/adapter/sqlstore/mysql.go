package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/guillermoBallester/strata/internal/core/domain"
)

// MySQL error numbers for missing objects.
const (
	mysqlNoSuchTable   = 1146
	mysqlUnknownColumn = 1054
)

// Catalog queries run against the database named in the DSN.

const mysqlListTables = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
	ORDER BY table_name`

const mysqlColumns = `
	SELECT
		column_name,
		data_type,
		COALESCE(character_maximum_length, numeric_precision),
		is_nullable = 'YES',
		ordinal_position,
		column_default,
		NULLIF(column_comment, '')
	FROM information_schema.columns
	WHERE table_schema = DATABASE() AND table_name = ?
	ORDER BY ordinal_position`

const mysqlPrimaryKey = `
	SELECT column_name, ordinal_position, constraint_name
	FROM information_schema.key_column_usage
	WHERE table_schema = DATABASE() AND table_name = ? AND constraint_name = 'PRIMARY'
	ORDER BY ordinal_position`

const mysqlForeignKeys = `
	SELECT
		k.constraint_name,
		k.column_name,
		k.referenced_table_name,
		k.referenced_column_name,
		k.ordinal_position,
		COALESCE(rc.unique_constraint_name, '')
	FROM information_schema.key_column_usage k
	LEFT JOIN information_schema.referential_constraints rc
		ON rc.constraint_schema = k.constraint_schema AND rc.constraint_name = k.constraint_name
	WHERE k.table_schema = DATABASE() AND k.table_name = ? AND k.referenced_table_name IS NOT NULL
	ORDER BY k.constraint_name, k.ordinal_position`

const mysqlIndexes = `
	SELECT index_name, non_unique = 0, index_type, column_name, seq_in_index, COALESCE(collation, '') = 'D'
	FROM information_schema.statistics
	WHERE table_schema = DATABASE() AND table_name = ? AND column_name IS NOT NULL
	ORDER BY index_name, seq_in_index`

type mySQL struct{}

func (mySQL) name() string { return domain.DriverMySQL }

func (mySQL) quote(ident string) string { return quoteWith(ident, "`", "`") }

func (d mySQL) qualify(table string) string { return d.quote(table) }

func (d mySQL) column(_, col string) string { return d.quote(col) }

func (mySQL) count(expr string) string { return "COUNT(" + expr + ")" }

func (mySQL) listTables(ctx context.Context, r *runner) ([]string, error) {
	var tables []string
	err := r.query(ctx, "list_tables", mysqlListTables, nil, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning table row: %w", err)
		}
		tables = append(tables, name)
		return nil
	})
	return tables, err
}

func (mySQL) listColumns(ctx context.Context, r *runner, table string) ([]domain.ColumnDescriptor, error) {
	var cols []domain.ColumnDescriptor
	err := r.query(ctx, "list_columns", mysqlColumns, []any{table}, func(rows *sql.Rows) error {
		var (
			col     domain.ColumnDescriptor
			size    sql.NullInt64
			def     sql.NullString
			remarks sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.DeclaredType, &size, &col.Nullable, &col.OrdinalPosition, &def, &remarks); err != nil {
			return fmt.Errorf("scanning column: %w", err)
		}
		col.DeclaredSize = optional(size.Int64, size.Valid)
		col.DefaultValue = optional(def.String, def.Valid)
		col.Remarks = optional(remarks.String, remarks.Valid)
		cols = append(cols, col)
		return nil
	})
	return cols, err
}

func (mySQL) primaryKey(ctx context.Context, r *runner, table string) ([]domain.PrimaryKeyColumn, error) {
	var pk []domain.PrimaryKeyColumn
	err := r.query(ctx, "primary_key", mysqlPrimaryKey, []any{table}, func(rows *sql.Rows) error {
		var c domain.PrimaryKeyColumn
		if err := rows.Scan(&c.Column, &c.KeySequence, &c.Name); err != nil {
			return fmt.Errorf("scanning primary key: %w", err)
		}
		pk = append(pk, c)
		return nil
	})
	return pk, err
}

func (mySQL) foreignKeys(ctx context.Context, r *runner, table string) ([]domain.ForeignKey, error) {
	var fks []domain.ForeignKey
	err := r.query(ctx, "foreign_keys", mysqlForeignKeys, []any{table}, func(rows *sql.Rows) error {
		var fk domain.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.KeySequence, &fk.ReferencedKey); err != nil {
			return fmt.Errorf("scanning foreign key: %w", err)
		}
		fks = append(fks, fk)
		return nil
	})
	return fks, err
}

func (mySQL) indexes(ctx context.Context, r *runner, table string) ([]domain.Index, error) {
	var indexes []domain.Index
	err := r.query(ctx, "indexes", mysqlIndexes, []any{table}, func(rows *sql.Rows) error {
		var (
			name, kind string
			unique     bool
			col        domain.IndexColumn
		)
		if err := rows.Scan(&name, &unique, &kind, &col.Column, &col.Position, &col.Descending); err != nil {
			return fmt.Errorf("scanning index: %w", err)
		}
		indexes = domain.AppendIndexColumn(indexes, name, unique, kind, col)
		return nil
	})
	return indexes, err
}

func (mySQL) notFound(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNoSuchTable || myErr.Number == mysqlUnknownColumn
	}
	return false
}
