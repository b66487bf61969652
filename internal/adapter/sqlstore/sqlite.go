package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/mattn/go-sqlite3"
)

const sqliteListTables = `
	SELECT name
	FROM sqlite_master
	WHERE type = 'table'
	ORDER BY name`

const sqliteColumns = `
	SELECT cid, name, type, "notnull", dflt_value
	FROM pragma_table_info(?)
	ORDER BY cid`

const sqlitePrimaryKey = `
	SELECT name, pk
	FROM pragma_table_info(?)
	WHERE pk > 0
	ORDER BY pk`

const sqliteForeignKeys = `
	SELECT id, seq, "table", "from", "to"
	FROM pragma_foreign_key_list(?)
	ORDER BY id, seq`

const sqliteIndexes = `
	SELECT il.name, il."unique", il.origin, ii.name, ii.seqno, ii."desc"
	FROM pragma_index_list(?) il
	JOIN pragma_index_xinfo(il.name) ii
	WHERE ii.key = 1 AND ii.name IS NOT NULL
	ORDER BY il.name, ii.seqno`

type sqlite struct{}

func (sqlite) name() string { return domain.DriverSQLite }

func (sqlite) quote(ident string) string { return quoteWith(ident, `"`, `"`) }

func (d sqlite) qualify(table string) string { return d.quote(table) }

// column is always table-qualified: SQLite reads an unknown bare "name" as
// a string literal, but a qualified one fails with "no such column".
func (d sqlite) column(table, col string) string { return d.qualify(table) + "." + d.quote(col) }

func (sqlite) count(expr string) string { return "COUNT(" + expr + ")" }

func (sqlite) listTables(ctx context.Context, r *runner) ([]string, error) {
	var tables []string
	err := r.query(ctx, "list_tables", sqliteListTables, nil, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scanning table row: %w", err)
		}
		tables = append(tables, name)
		return nil
	})
	return tables, err
}

func (sqlite) listColumns(ctx context.Context, r *runner, table string) ([]domain.ColumnDescriptor, error) {
	var cols []domain.ColumnDescriptor
	err := r.query(ctx, "list_columns", sqliteColumns, []any{table}, func(rows *sql.Rows) error {
		var (
			cid      int
			name     string
			declared string
			notNull  bool
			def      sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &def); err != nil {
			return fmt.Errorf("scanning column: %w", err)
		}
		typ, size := splitDeclaredType(declared)
		cols = append(cols, domain.ColumnDescriptor{
			Name:            name,
			DeclaredType:    typ,
			DeclaredSize:    size,
			Nullable:        !notNull,
			OrdinalPosition: cid + 1,
			DefaultValue:    optional(def.String, def.Valid),
		})
		return nil
	})
	return cols, err
}

func (sqlite) primaryKey(ctx context.Context, r *runner, table string) ([]domain.PrimaryKeyColumn, error) {
	var pk []domain.PrimaryKeyColumn
	err := r.query(ctx, "primary_key", sqlitePrimaryKey, []any{table}, func(rows *sql.Rows) error {
		var c domain.PrimaryKeyColumn
		if err := rows.Scan(&c.Column, &c.KeySequence); err != nil {
			return fmt.Errorf("scanning primary key: %w", err)
		}
		pk = append(pk, c)
		return nil
	})
	return pk, err
}

// foreignKeys names each constraint by its pragma id, since SQLite keeps no
// constraint names. A reference to the parent's implicit key has no "to"
// column and is reported with an empty ReferencedColumn.
func (sqlite) foreignKeys(ctx context.Context, r *runner, table string) ([]domain.ForeignKey, error) {
	var fks []domain.ForeignKey
	err := r.query(ctx, "foreign_keys", sqliteForeignKeys, []any{table}, func(rows *sql.Rows) error {
		var (
			id, seq int
			fk      domain.ForeignKey
			to      sql.NullString
		)
		if err := rows.Scan(&id, &seq, &fk.ReferencedTable, &fk.Column, &to); err != nil {
			return fmt.Errorf("scanning foreign key: %w", err)
		}
		fk.Name = fmt.Sprintf("fk_%s_%d", table, id)
		fk.KeySequence = seq + 1
		fk.ReferencedColumn = to.String
		fks = append(fks, fk)
		return nil
	})
	return fks, err
}

func (sqlite) indexes(ctx context.Context, r *runner, table string) ([]domain.Index, error) {
	var indexes []domain.Index
	err := r.query(ctx, "indexes", sqliteIndexes, []any{table}, func(rows *sql.Rows) error {
		var (
			name, origin string
			unique       bool
			col          domain.IndexColumn
		)
		if err := rows.Scan(&name, &unique, &origin, &col.Column, &col.Position, &col.Descending); err != nil {
			return fmt.Errorf("scanning index: %w", err)
		}
		col.Position++
		indexes = domain.AppendIndexColumn(indexes, name, unique, indexOrigin(origin), col)
		return nil
	})
	return indexes, err
}

func (sqlite) notFound(err error) bool {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	msg := liteErr.Error()
	return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
}

func indexOrigin(origin string) string {
	switch origin {
	case "pk":
		return "primary key"
	case "u":
		return "unique constraint"
	default:
		return "index"
	}
}

// splitDeclaredType separates "VARCHAR(50)" into its type name and size.
// Only the first size argument is kept, so "DECIMAL(10,2)" has size 10.
func splitDeclaredType(declared string) (string, *int64) {
	open := strings.IndexByte(declared, '(')
	if open < 0 {
		return strings.TrimSpace(declared), nil
	}
	typ := strings.TrimSpace(declared[:open])
	args := strings.TrimSuffix(strings.TrimSpace(declared[open+1:]), ")")
	first, _, _ := strings.Cut(args, ",")
	n, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil {
		return typ, nil
	}
	return typ, &n
}
