// Package report writes analysis results to disk: the JSON result tree, a
// Markdown report, CSV exports of fully enumerated fields and an XLSX
// workbook.
package report

import (
	"fmt"
	"strings"

	"github.com/guillermoBallester/strata/internal/core/domain"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// DefaultFormats are written when none are configured.
var DefaultFormats = []Format{FormatJSON, FormatMarkdown, FormatCSV}

// ParseFormats validates format names. "md" is accepted for markdown.
// An empty list selects DefaultFormats.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return append([]Format(nil), DefaultFormats...), nil
	}
	seen := make(map[Format]bool, len(names))
	formats := make([]Format, 0, len(names))
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if f == "md" {
			f = FormatMarkdown
		}
		switch f {
		case FormatJSON, FormatMarkdown, FormatCSV, FormatXLSX:
		default:
			return nil, fmt.Errorf("%w: unknown report format %q (want json, markdown, csv or xlsx)", domain.ErrConfiguration, n)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// valuePercentage is a value's share of all rows, including NULLs, so
// percentages within a field never exceed 100.
func valuePercentage(count, totalRows int64) float64 {
	return domain.Percentage(count, totalRows, 2)
}

var fileNameReplacer = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// safeName makes a database, table or field name usable in a file name.
func safeName(s string) string {
	return fileNameReplacer.Replace(s)
}
