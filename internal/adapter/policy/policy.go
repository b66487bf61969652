package policy

import (
	"fmt"
	"strings"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Policy holds operator-controlled analysis decisions loaded from a YAML
// file: which columns are enumerated and how, which tables carry the
// assessment checks, and per-table descriptions and masks.
type Policy struct {
	Enumeration      EnumerationConfig `yaml:"enumeration"`
	AssessmentTables []string          `yaml:"assessment_tables"`
	Consistency      ConsistencyConfig `yaml:"consistency"`
	Context          ContextConfig     `yaml:"context"`
}

// EnumerationConfig mirrors domain.EnumerationConfig in the file format.
// Zero thresholds fall back to the domain defaults.
type EnumerationConfig struct {
	Full            []string `yaml:"full"`
	Bounded         []string `yaml:"bounded"`
	BoundedCap      int      `yaml:"bounded_cap"`
	AutoThreshold   int      `yaml:"auto_threshold"`
	TopK            int      `yaml:"top_k"`
	CaseInsensitive bool     `yaml:"case_insensitive"`
}

// ConsistencyConfig overrides the assessment rules. Nil Rules keep the
// built-in checks.
type ConsistencyConfig struct {
	Placeholder string                   `yaml:"placeholder"`
	Rules       []domain.ConsistencyRule `yaml:"rules"`
}

// ContextConfig maps table names to business descriptions and masks.
type ContextConfig struct {
	Tables map[string]TableContext `yaml:"tables"`
}

// TableContext provides business descriptions and masking rules for a table and its columns.
type TableContext struct {
	Description string                   `yaml:"description"`
	Columns     map[string]ColumnContext `yaml:"columns"`
}

// ColumnContext holds a column's business description and optional mask directive.
type ColumnContext struct {
	Description string          `yaml:"description"`
	Mask        domain.MaskType `yaml:"mask,omitempty"`
}

// UnmarshalYAML accepts a plain string as shorthand for a description.
//
//	columns:
//	  COUNTY_NAME: "County the school belongs to"
//	  STUDENT_NAME:
//	    description: "Student full name"
//	    mask: "redact"
func (cc *ColumnContext) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		cc.Description = value.Value
		return nil
	}
	type alias ColumnContext
	var a alias
	if err := value.Decode(&a); err != nil {
		return fmt.Errorf("decoding column context: %w", err)
	}
	*cc = ColumnContext(a)
	return nil
}

// EnumerationPolicy builds the domain policy from the file settings.
func (p *Policy) EnumerationPolicy() (domain.EnumerationPolicy, error) {
	return domain.NewEnumerationPolicy(domain.EnumerationConfig{
		Full:          p.Enumeration.Full,
		Bounded:       p.Enumeration.Bounded,
		BoundedCap:    p.Enumeration.BoundedCap,
		AutoThreshold: p.Enumeration.AutoThreshold,
		TopK:          p.Enumeration.TopK,
		FoldCase:      p.Enumeration.CaseInsensitive,
	})
}

// IsAssessmentTable reports whether table is listed in assessment_tables,
// ignoring case.
func (p *Policy) IsAssessmentTable(table string) bool {
	for _, t := range p.AssessmentTables {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

// ColumnMask returns the mask configured for table.column, if any.
func (p *Policy) ColumnMask(table, column string) domain.MaskType {
	cc, ok := p.column(table, column)
	if !ok {
		return ""
	}
	return cc.Mask
}

// TableDescription returns the business description of table.
func (p *Policy) TableDescription(table string) string {
	tc, ok := p.table(table)
	if !ok {
		return ""
	}
	return tc.Description
}

func (p *Policy) table(name string) (TableContext, bool) {
	if tc, ok := p.Context.Tables[name]; ok {
		return tc, true
	}
	for key, tc := range p.Context.Tables {
		if strings.EqualFold(key, name) {
			return tc, true
		}
	}
	return TableContext{}, false
}

func (p *Policy) column(table, column string) (ColumnContext, bool) {
	tc, ok := p.table(table)
	if !ok {
		return ColumnContext{}, false
	}
	if cc, ok := tc.Columns[column]; ok {
		return cc, true
	}
	for key, cc := range tc.Columns {
		if strings.EqualFold(key, column) {
			return cc, true
		}
	}
	return ColumnContext{}, false
}
