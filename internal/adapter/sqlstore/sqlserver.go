package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guillermoBallester/strata/internal/core/domain"
	mssql "github.com/microsoft/go-mssqldb"
)

// DefaultSQLServerSchema is used when a source does not name one.
const DefaultSQLServerSchema = "dbo"

// SQL Server error numbers for missing objects.
const (
	mssqlInvalidObject = 208
	mssqlInvalidColumn = 207
)

const mssqlListTables = `
	SET NOCOUNT ON;
	SELECT t.name
	FROM sys.tables t
	WHERE t.schema_id = SCHEMA_ID(@schema) AND t.is_ms_shipped = 0
	ORDER BY t.name`

// Character lengths are reported in characters, not bytes.
const mssqlColumns = `
	SET NOCOUNT ON;
	SELECT
	    c.name,
	    tp.name,
	    CASE
	        WHEN c.max_length = -1 THEN NULL
	        WHEN tp.name IN ('nchar', 'nvarchar') THEN c.max_length / 2
	        WHEN c.precision > 0 THEN c.precision
	        ELSE c.max_length
	    END,
	    c.is_nullable,
	    c.column_id,
	    OBJECT_DEFINITION(c.default_object_id),
	    CAST(ep.value AS NVARCHAR(4000))
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN sys.extended_properties ep
	    ON ep.major_id = c.object_id AND ep.minor_id = c.column_id
	    AND ep.class = 1 AND ep.name = N'MS_Description'
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id`

const mssqlPrimaryKey = `
	SET NOCOUNT ON;
	SELECT c.name, ic.key_ordinal, i.name
	FROM sys.indexes i
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE i.is_primary_key = 1
	    AND i.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY ic.key_ordinal`

const mssqlForeignKeys = `
	SET NOCOUNT ON;
	SELECT
	    fk.name,
	    pc.name,
	    OBJECT_NAME(fk.referenced_object_id),
	    rc.name,
	    fkc.constraint_column_id,
	    ISNULL(ki.name, N'')
	FROM sys.foreign_keys fk
	INNER JOIN sys.foreign_key_columns fkc ON fk.object_id = fkc.constraint_object_id
	INNER JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
	INNER JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
	LEFT JOIN sys.indexes ki ON ki.object_id = fk.referenced_object_id AND ki.index_id = fk.key_index_id
	WHERE fk.parent_object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY fk.name, fkc.constraint_column_id`

const mssqlIndexes = `
	SET NOCOUNT ON;
	SELECT i.name, i.is_unique, i.type_desc, c.name, ic.key_ordinal, ic.is_descending_key
	FROM sys.indexes i
	INNER JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	INNER JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
	WHERE i.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	    AND i.name IS NOT NULL AND ic.key_ordinal > 0
	ORDER BY i.name, ic.key_ordinal`

type sqlServer struct {
	schema string
}

func (d sqlServer) name() string { return domain.DriverSQLServer }

func (d sqlServer) quote(ident string) string { return quoteWith(ident, "[", "]") }

func (d sqlServer) qualify(table string) string {
	return d.quote(d.schema) + "." + d.quote(table)
}

func (d sqlServer) column(_, col string) string { return d.quote(col) }

func (d sqlServer) count(expr string) string { return "COUNT_BIG(" + expr + ")" }

func (d sqlServer) args(table string) []any {
	return []any{sql.Named("schema", d.schema), sql.Named("table", table)}
}

func (d sqlServer) listTables(ctx context.Context, r *runner) ([]string, error) {
	var tables []string
	err := r.query(ctx, "list_tables", mssqlListTables, []any{sql.Named("schema", d.schema)}, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning table row: %w", err)
		}
		tables = append(tables, name)
		return nil
	})
	return tables, err
}

func (d sqlServer) listColumns(ctx context.Context, r *runner, table string) ([]domain.ColumnDescriptor, error) {
	var cols []domain.ColumnDescriptor
	err := r.query(ctx, "list_columns", mssqlColumns, d.args(table), func(rows *sql.Rows) error {
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

func (d sqlServer) primaryKey(ctx context.Context, r *runner, table string) ([]domain.PrimaryKeyColumn, error) {
	var pk []domain.PrimaryKeyColumn
	err := r.query(ctx, "primary_key", mssqlPrimaryKey, d.args(table), func(rows *sql.Rows) error {
		var c domain.PrimaryKeyColumn
		if err := rows.Scan(&c.Column, &c.KeySequence, &c.Name); err != nil {
			return fmt.Errorf("scanning primary key: %w", err)
		}
		pk = append(pk, c)
		return nil
	})
	return pk, err
}

func (d sqlServer) foreignKeys(ctx context.Context, r *runner, table string) ([]domain.ForeignKey, error) {
	var fks []domain.ForeignKey
	err := r.query(ctx, "foreign_keys", mssqlForeignKeys, d.args(table), func(rows *sql.Rows) error {
		var fk domain.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.KeySequence, &fk.ReferencedKey); err != nil {
			return fmt.Errorf("scanning foreign key: %w", err)
		}
		fks = append(fks, fk)
		return nil
	})
	return fks, err
}

func (d sqlServer) indexes(ctx context.Context, r *runner, table string) ([]domain.Index, error) {
	var indexes []domain.Index
	err := r.query(ctx, "indexes", mssqlIndexes, d.args(table), func(rows *sql.Rows) error {
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

func (d sqlServer) notFound(err error) bool {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == mssqlInvalidObject || msErr.Number == mssqlInvalidColumn
	}
	return false
}
