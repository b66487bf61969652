package report

import (
	"io"
	"strings"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxListedForeignKeys bounds the foreign keys listed per table.
const maxListedForeignKeys = 20

// mdWriter remembers the first write error so rendering code stays linear.
type mdWriter struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func (m *mdWriter) printf(format string, args ...any) {
	if m.err != nil {
		return
	}
	_, m.err = m.p.Fprintf(m.w, format, args...)
}

// RenderMarkdown writes a human-readable report of db.
func RenderMarkdown(w io.Writer, db *domain.DatabaseResult) error {
	m := &mdWriter{w: w, p: message.NewPrinter(language.English)}

	m.printf("# %s database profile\n\n", db.Name)
	m.printf("- **Driver**: %s\n", db.Driver)
	m.printf("- **Location**: %s\n", db.Location)
	m.printf("- **Run**: %s\n", db.RunID)
	m.printf("- **Started**: %s\n", db.StartedAt.Format(time.RFC3339))
	m.printf("- **Tables**: %d\n", db.Tables.Len())
	if db.Error != "" {
		m.printf("\n> **%s**: %s\n", db.ErrorKind, db.Error)
	}

	for pair := db.Tables.Oldest(); pair != nil; pair = pair.Next() {
		renderTable(m, pair.Value)
	}
	return m.err
}

func renderTable(m *mdWriter, t *domain.TableResult) {
	m.printf("\n## Table: %s\n\n", t.Name)
	if t.Description != "" {
		m.printf("%s\n\n", t.Description)
	}
	if t.Error != "" {
		m.printf("> **%s**: %s\n", t.ErrorKind, t.Error)
		return
	}
	m.printf("- **Rows**: %d\n", t.RowCount)
	m.printf("- **Columns**: %d\n\n", t.ColumnCount)

	renderConstraints(m, t)

	m.printf("### Fields\n\n")
	for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
		renderField(m, pair.Value)
	}

	if len(t.RuleChecks) > 0 {
		m.printf("\n### Rule checks\n\n")
		for _, o := range t.RuleChecks {
			if o.Result == nil {
				m.printf("- %s_error: %s\n", o.Rule, o.Err)
				continue
			}
			m.printf("- %s: %d / %d rows mismatched (%v%%)\n",
				o.Rule, o.Result.MismatchRows, o.Result.TotalRows, o.Result.MismatchPercentage)
		}
	}
}

func renderConstraints(m *mdWriter, t *domain.TableResult) {
	c := t.Constraints
	m.printf("### Constraints\n\n")

	if pk := c.PrimaryKeyColumns(); len(pk) > 0 {
		m.printf("- Primary key: %s\n", strings.Join(pk, ", "))
	} else {
		m.printf("- Primary key: (none detected)\n")
	}

	if len(c.ForeignKeys) > 0 {
		m.printf("- Foreign keys:\n")
		for i, fk := range c.ForeignKeys {
			if i == maxListedForeignKeys {
				m.printf("  - ... %d in total\n", len(c.ForeignKeys))
				break
			}
			m.printf("  - %s -> %s.%s (FK: %s)\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn, fk.Name)
		}
	} else {
		m.printf("- Foreign keys: (none detected)\n")
	}

	for _, fk := range t.InferredForeignKeys {
		m.printf("- Inferred reference: %s -> %s.%s (%s confidence)\n",
			fk.ColumnName, fk.ReferencedTable, fk.ReferencedColumn, fk.Confidence)
	}

	unique, nonUnique := c.IndexCounts()
	m.printf("- Unique indexes: %d, non-unique indexes: %d\n", unique, nonUnique)

	for _, kind := range []domain.ConstraintKind{domain.ConstraintPrimaryKey, domain.ConstraintForeignKeys, domain.ConstraintIndexes} {
		if msg, ok := c.Errors[kind]; ok {
			m.printf("- %s_error: %s\n", kind, msg)
		}
	}
	m.printf("\n")
}

func renderField(m *mdWriter, f domain.FieldAnalysis) {
	m.printf("\n#### Field: `%s`\n\n", f.Name)
	m.printf("**Basics**:\n")
	m.printf("- Data type: `%s`\n", f.DeclaredType)
	if f.DeclaredSize != nil {
		m.printf("- Size: %d\n", *f.DeclaredSize)
	}
	m.printf("- Nullable: %s\n", yesNo(f.Nullable))
	if f.DefaultValue != nil {
		m.printf("- Default: %s\n", *f.DefaultValue)
	}
	if f.Remarks != nil && *f.Remarks != "" {
		m.printf("- Remarks: %s\n", *f.Remarks)
	}
	m.printf("\n")

	if f.Failed() {
		m.printf("> **%s**: %s\n\n---\n", f.ErrorKind, f.Error)
		return
	}

	m.printf("**Statistics**:\n")
	m.printf("- Total rows: %d\n", f.TotalRows)
	m.printf("- Non-null rows: %d\n", f.NonNullCount)
	m.printf("- Nulls: %d (%v%%)\n", f.NullCount, f.NullPercentage)
	m.printf("- Distinct values: %d (%v%% of non-null rows, a diversity measure, not coverage)\n", f.DistinctCount, f.DistinctPercentage)
	if f.Cardinality != "" {
		m.printf("- Cardinality: %s\n", f.Cardinality)
	}
	m.printf("\n")

	if r := f.Retention; r != nil && len(r.Values) > 0 {
		if r.Tag == domain.RetainTopK {
			m.printf("**Top %d values**:\n\n", len(r.Values))
		} else {
			m.printf("**All values** (%d, %s):\n\n", len(r.Values), r.Tag)
		}
		m.printf("| Value | Count | %% of rows |\n")
		m.printf("|---|---|---|\n")
		for _, v := range r.Values {
			m.printf("| %s | %d | %.2f%% |\n", escapeCell(v.Value), v.Count, valuePercentage(v.Count, f.TotalRows))
		}
	}
	m.printf("\n---\n")
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
