package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\ufeff"

// EncodeValuesCSV writes the retained values of a field as
// value,count,percentage rows, the percentage being of all rows.
func EncodeValuesCSV(w io.Writer, fa domain.FieldAnalysis) error {
	if fa.Retention == nil {
		return fmt.Errorf("field %q has no retained values", fa.Name)
	}
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"value", "count", "percentage"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, v := range fa.Retention.Values {
		record := []string{
			v.Value,
			strconv.FormatInt(v.Count, 10),
			strconv.FormatFloat(valuePercentage(v.Count, fa.TotalRows), 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
