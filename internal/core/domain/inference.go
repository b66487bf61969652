package domain

import (
	"fmt"
	"strings"
)

// FKCandidate is a reference suggested by a column's name alone.
type FKCandidate struct {
	ColumnName      string `json:"column"`
	ReferencedTable string `json:"referenced_table"`
	Confidence      string `json:"confidence"` // "high" or "medium"
	Reason          string `json:"reason"`
}

// InferredForeignKey is an FKCandidate confirmed against the referenced
// table's single-column primary key.
type InferredForeignKey struct {
	FKCandidate
	ReferencedColumn string `json:"referenced_column"`
}

// MatchFKNamingPattern checks whether columnName ends in "_id" (any case)
// and its prefix names a known table in plural or singular form.
// tableNames maps lower-cased table names to their real spelling.
func MatchFKNamingPattern(columnName string, tableNames map[string]string) (FKCandidate, bool) {
	lower := strings.ToLower(columnName)
	if !strings.HasSuffix(lower, "_id") {
		return FKCandidate{}, false
	}
	prefix := strings.TrimSuffix(lower, "_id")
	if prefix == "" {
		return FKCandidate{}, false
	}

	for _, candidate := range []string{prefix + "s", prefix, prefix + "es"} {
		table, ok := tableNames[candidate]
		if !ok {
			continue
		}
		confidence := "high"
		if candidate == prefix+"es" {
			confidence = "medium"
		}
		return FKCandidate{
			ColumnName:      columnName,
			ReferencedTable: table,
			Confidence:      confidence,
			Reason:          fmt.Sprintf("column %q matches naming pattern for table %q", columnName, table),
		}, true
	}
	return FKCandidate{}, false
}

// InferForeignKeys proposes references for the *_id columns of table that
// have no declared foreign key. primaryKeys maps every table in scope to its
// primary key columns; only tables with a single-column key can be targets.
func InferForeignKeys(table string, columns []ColumnDescriptor, constraints ConstraintSet, primaryKeys map[string][]string) []InferredForeignKey {
	tableNames := make(map[string]string, len(primaryKeys))
	for name, pk := range primaryKeys {
		if len(pk) == 1 {
			tableNames[strings.ToLower(name)] = name
		}
	}

	var inferred []InferredForeignKey
	for _, col := range columns {
		if constraints.HasForeignKey(col.Name) {
			continue
		}
		candidate, ok := MatchFKNamingPattern(col.Name, tableNames)
		if !ok || strings.EqualFold(candidate.ReferencedTable, table) {
			continue
		}
		inferred = append(inferred, InferredForeignKey{
			FKCandidate:      candidate,
			ReferencedColumn: primaryKeys[candidate.ReferencedTable][0],
		})
	}
	return inferred
}
