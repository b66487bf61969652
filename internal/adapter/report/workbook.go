package report

import (
	"fmt"
	"strings"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet      = "Summary"
	maxSheetNameRunes = 31
)

var (
	summaryHeaders = []string{"Table", "Rows", "Columns", "Failed fields", "Rule checks", "Error"}
	fieldHeaders   = []string{
		"Field", "Type", "Nullable", "Total rows", "Nulls", "Null %",
		"Distinct", "Distinct %", "Cardinality", "Retention", "Values", "Error",
	}
	sheetNameReplacer = strings.NewReplacer(
		":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
	)
)

// BuildWorkbook lays db out as a spreadsheet: a Summary sheet with one row
// per table, then one sheet per table listing its fields. The caller owns
// the returned file and must Close it.
func BuildWorkbook(db *domain.DatabaseResult) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeRow(f, summarySheet, 1, toAny(summaryHeaders), headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	used := map[string]bool{strings.ToLower(summarySheet): true}
	row := 2
	for pair := db.Tables.Oldest(); pair != nil; pair = pair.Next() {
		t := pair.Value
		values := []any{t.Name, t.RowCount, t.ColumnCount, t.FailedFields(), ruleSummary(t.RuleChecks), t.Error}
		if err := writeRow(f, summarySheet, row, values, 0); err != nil {
			_ = f.Close()
			return nil, err
		}
		row++

		if t.Error != "" {
			continue
		}
		sheet := uniqueSheetName(t.Name, used)
		if _, err := f.NewSheet(sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating sheet for %s: %w", t.Name, err)
		}
		if err := writeFieldSheet(f, sheet, t, headerStyle); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	setWidths(f, summarySheet, len(summaryHeaders), 18)
	f.SetActiveSheet(0)
	return f, nil
}

func writeFieldSheet(f *excelize.File, sheet string, t *domain.TableResult, headerStyle int) error {
	if err := writeRow(f, sheet, 1, toAny(fieldHeaders), headerStyle); err != nil {
		return err
	}
	row := 2
	for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
		fa := pair.Value
		var tag string
		var retained int
		if fa.Retention != nil {
			tag = string(fa.Retention.Tag)
			retained = len(fa.Retention.Values)
		}
		values := []any{
			fa.Name, fa.DeclaredType, yesNo(fa.Nullable), fa.TotalRows, fa.NullCount, fa.NullPercentage,
			fa.DistinctCount, fa.DistinctPercentage, string(fa.Cardinality), tag, retained, fa.Error,
		}
		if err := writeRow(f, sheet, row, values, 0); err != nil {
			return err
		}
		row++
	}
	setWidths(f, sheet, len(fieldHeaders), 15)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any, style int) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("styling %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, n int, width float64) {
	for i := range n {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}
}

// uniqueSheetName trims name to the sheet-name limit, replacing characters
// the format forbids, and suffixes a counter when the result is taken.
// Sheet names compare case-insensitively.
func uniqueSheetName(name string, used map[string]bool) string {
	base := truncateRunes(sheetNameReplacer.Replace(name), maxSheetNameRunes)
	if base == "" {
		base = "table"
	}
	candidate := base
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		candidate = truncateRunes(base, maxSheetNameRunes-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func ruleSummary(checks domain.RuleChecks) string {
	parts := make([]string, 0, len(checks))
	for _, o := range checks {
		if o.Result == nil {
			parts = append(parts, o.Rule+": error")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d/%d", o.Rule, o.Result.MismatchRows, o.Result.TotalRows))
	}
	return strings.Join(parts, "; ")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
