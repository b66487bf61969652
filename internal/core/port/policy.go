package port

import "github.com/guillermoBallester/strata/internal/core/domain"

// FieldPolicy supplies the operator decisions the analyzer applies per
// table and column.
type FieldPolicy interface {
	IsAssessmentTable(table string) bool
	ColumnMask(table, column string) domain.MaskType
	TableDescription(table string) string
}
