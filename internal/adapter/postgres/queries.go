package postgres

// Catalog queries. $1 is always the schema name, $2 the table name.

const queryListTables = `
	SELECT c.relname
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
	ORDER BY c.relname`

const queryColumns = `
	SELECT
		c.column_name::text,
		c.data_type::text,
		COALESCE(c.character_maximum_length, c.numeric_precision)::bigint,
		c.is_nullable = 'YES',
		c.ordinal_position::int,
		c.column_default::text,
		pg_catalog.col_description(
			(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass,
			c.ordinal_position
		)
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

const queryPrimaryKey = `
	SELECT a.attname, k.ord::int, con.conname
	FROM pg_constraint con
	JOIN pg_class t ON t.oid = con.conrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
	WHERE con.contype = 'p' AND n.nspname = $1 AND t.relname = $2
	ORDER BY k.ord`

const queryForeignKeys = `
	SELECT
		con.conname,
		a.attname,
		rt.relname,
		ra.attname,
		k.ord::int,
		COALESCE(ri.relname, '')
	FROM pg_constraint con
	JOIN pg_class t ON t.oid = con.conrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_class rt ON rt.oid = con.confrelid
	LEFT JOIN pg_class ri ON ri.oid = con.conindid
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refnum, ord)
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
	JOIN pg_attribute ra ON ra.attrelid = rt.oid AND ra.attnum = k.refnum
	WHERE con.contype = 'f' AND n.nspname = $1 AND t.relname = $2
	ORDER BY con.conname, k.ord`

// queryIndexes returns one row per index column, grouped by index.
// Expression columns (attnum 0) are skipped.
const queryIndexes = `
	SELECT
		ic.relname,
		ix.indisunique,
		am.amname,
		a.attname,
		k.ord::int,
		(ix.indoption[(k.ord - 1)::int] & 1) = 1
	FROM pg_index ix
	JOIN pg_class t ON t.oid = ix.indrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	JOIN pg_class ic ON ic.oid = ix.indexrelid
	JOIN pg_am am ON am.oid = ic.relam
	CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
	WHERE n.nspname = $1 AND t.relname = $2
	ORDER BY ic.relname, k.ord`

// Value queries. Identifiers are quoted by the caller; %s placeholders
// take a qualified table name and quoted column names.

const queryCountRows = `SELECT count(*) FROM %s`

const queryCountNonNull = `SELECT count(%s) FROM %s`

// queryValueCounts groups on the text form so types without equality
// (json, xml) can still be profiled.
const queryValueCounts = `
	SELECT %[1]s::text AS value, count(*) AS freq
	FROM %[2]s
	GROUP BY 1
	ORDER BY freq DESC`

const queryScanRows = `SELECT %s FROM %s`
