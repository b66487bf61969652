package domain

import (
	"cmp"
	"slices"
	"strings"
)

// ColumnDescriptor is the structural metadata of one column as reported by
// the store. DeclaredSize, DefaultValue and Remarks are nil when the store
// has nothing to report.
type ColumnDescriptor struct {
	Name            string  `json:"name"`
	DeclaredType    string  `json:"data_type"`
	DeclaredSize    *int64  `json:"column_size,omitempty"`
	Nullable        bool    `json:"nullable"`
	OrdinalPosition int     `json:"ordinal_position"`
	DefaultValue    *string `json:"default_value,omitempty"`
	Remarks         *string `json:"remarks,omitempty"`
}

// LookupColumn finds name in cols. An exact match wins; otherwise the first
// case-insensitive match is returned.
func LookupColumn(cols []ColumnDescriptor, name string) (ColumnDescriptor, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnDescriptor{}, false
}

// ConstraintKind names one independently retrieved constraint category.
type ConstraintKind string

const (
	ConstraintPrimaryKey  ConstraintKind = "primary_key"
	ConstraintForeignKeys ConstraintKind = "foreign_keys"
	ConstraintIndexes     ConstraintKind = "indexes"
)

type PrimaryKeyColumn struct {
	Column      string `json:"column"`
	KeySequence int    `json:"key_seq"`
	Name        string `json:"pk_name,omitempty"`
}

type ForeignKey struct {
	Name             string `json:"fk_name,omitempty"`
	Column           string `json:"fk_column"`
	ReferencedTable  string `json:"pk_table"`
	ReferencedColumn string `json:"pk_column"`
	KeySequence      int    `json:"key_seq"`
	ReferencedKey    string `json:"pk_name,omitempty"`
}

type IndexColumn struct {
	Column     string `json:"column"`
	Position   int    `json:"ordinal_position"`
	Descending bool   `json:"descending,omitempty"`
}

type Index struct {
	Name    string        `json:"index_name"`
	Unique  bool          `json:"unique"`
	Type    string        `json:"type,omitempty"`
	Columns []IndexColumn `json:"columns"`
}

// AppendIndexColumn adds col to the index called name, starting a new index
// when the previous entry has a different name. Stores return index columns
// grouped by index, so a linear merge is enough.
func AppendIndexColumn(indexes []Index, name string, unique bool, indexType string, col IndexColumn) []Index {
	if n := len(indexes); n > 0 && indexes[n-1].Name == name {
		indexes[n-1].Columns = append(indexes[n-1].Columns, col)
		return indexes
	}
	return append(indexes, Index{
		Name:    name,
		Unique:  unique,
		Type:    indexType,
		Columns: []IndexColumn{col},
	})
}

// ConstraintSet holds every constraint kind of a table. Each kind is
// retrieved on its own; a failed kind leaves its slice empty and its
// message in Errors.
type ConstraintSet struct {
	PrimaryKey  []PrimaryKeyColumn        `json:"primary_keys"`
	ForeignKeys []ForeignKey              `json:"foreign_keys"`
	Indexes     []Index                   `json:"indexes"`
	Errors      map[ConstraintKind]string `json:"errors,omitempty"`
}

// RecordError notes that kind could not be retrieved.
func (c *ConstraintSet) RecordError(kind ConstraintKind, err error) {
	if err == nil {
		return
	}
	if c.Errors == nil {
		c.Errors = make(map[ConstraintKind]string)
	}
	c.Errors[kind] = err.Error()
}

// PrimaryKeyColumns returns the key column names ordered by key sequence.
func (c ConstraintSet) PrimaryKeyColumns() []string {
	ordered := slices.Clone(c.PrimaryKey)
	slices.SortStableFunc(ordered, func(a, b PrimaryKeyColumn) int {
		return cmp.Compare(a.KeySequence, b.KeySequence)
	})
	cols := make([]string, len(ordered))
	for i, pk := range ordered {
		cols[i] = pk.Column
	}
	return cols
}

// IndexCounts returns the number of unique and non-unique indexes.
func (c ConstraintSet) IndexCounts() (unique, nonUnique int) {
	for _, idx := range c.Indexes {
		if idx.Unique {
			unique++
		} else {
			nonUnique++
		}
	}
	return unique, nonUnique
}

// HasForeignKey reports whether column is the source of a declared foreign key.
func (c ConstraintSet) HasForeignKey(column string) bool {
	for _, fk := range c.ForeignKeys {
		if strings.EqualFold(fk.Column, column) {
			return true
		}
	}
	return false
}
