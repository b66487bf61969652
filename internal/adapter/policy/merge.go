package policy

import "github.com/guillermoBallester/strata/internal/core/domain"

// MergeColumns fills empty column remarks with descriptions from the policy.
// Remarks reported by the database always take precedence.
func MergeColumns(table string, cols []domain.ColumnDescriptor, pol *Policy) {
	if pol == nil {
		return
	}
	for i, col := range cols {
		if col.Remarks != nil && *col.Remarks != "" {
			continue
		}
		cc, ok := pol.column(table, col.Name)
		if !ok || cc.Description == "" {
			continue
		}
		desc := cc.Description
		cols[i].Remarks = &desc
	}
}
