package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultPlaceholder is the text stores use in count columns for "no value".
// It counts as zero.
const DefaultPlaceholder = "-"

// ConsistencyRule asserts Target == sum(Addends) on every row, optionally
// restricted to rows where FilterColumn equals FilterValue, ignoring case.
// NullAsZero counts NULL operands as 0 instead of skipping the row.
type ConsistencyRule struct {
	Name         string   `yaml:"name" json:"name"`
	Target       string   `yaml:"target" json:"target"`
	Addends      []string `yaml:"addends" json:"addends"`
	FilterColumn string   `yaml:"filter_column,omitempty" json:"filter_column,omitempty"`
	FilterValue  string   `yaml:"filter_value,omitempty" json:"filter_value,omitempty"`
	NullAsZero   bool     `yaml:"null_as_zero,omitempty" json:"null_as_zero,omitempty"`
}

// DefaultConsistencyRules are the assessment checks: the level counts add up
// to the tested count, and the proficient count matches the AP (levels 3-5)
// and IB (levels 4-7) proficiency bands.
func DefaultConsistencyRules() []ConsistencyRule {
	return []ConsistencyRule{
		{
			Name:    "levels_sum_check",
			Target:  "tested_student_cnt",
			Addends: levelColumns(1, 7),
		},
		{
			Name:         "ap_proficient_check",
			Target:       "proficient_student_cnt",
			Addends:      levelColumns(3, 5),
			FilterColumn: "APIB_IND",
			FilterValue:  "AP",
		},
		{
			Name:         "ib_proficient_check",
			Target:       "proficient_student_cnt",
			Addends:      levelColumns(4, 7),
			FilterColumn: "APIB_IND",
			FilterValue:  "IB",
		},
	}
}

func levelColumns(from, to int) []string {
	cols := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		cols = append(cols, fmt.Sprintf("level%d_cnt", i))
	}
	return cols
}

// Validate checks that the rule names its target and at least one addend.
func (r ConsistencyRule) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: consistency rule without a name", ErrConfiguration)
	case r.Target == "":
		return fmt.Errorf("%w: consistency rule %q has no target column", ErrConfiguration, r.Name)
	case len(r.Addends) == 0:
		return fmt.Errorf("%w: consistency rule %q has no addend columns", ErrConfiguration, r.Name)
	case (r.FilterColumn == "") != (r.FilterValue == ""):
		return fmt.Errorf("%w: consistency rule %q needs both filter_column and filter_value", ErrConfiguration, r.Name)
	}
	return nil
}

// Columns lists the columns a rule reads, in the order RuleTally.Observe
// expects them: target, addends, then the filter column if any.
func (r ConsistencyRule) Columns() []string {
	cols := make([]string, 0, len(r.Addends)+2)
	cols = append(cols, r.Target)
	cols = append(cols, r.Addends...)
	if r.FilterColumn != "" {
		cols = append(cols, r.FilterColumn)
	}
	return cols
}

// ResolveColumns maps the rule's column names onto the table's actual
// names, ignoring case. A missing column yields an error wrapping
// ErrNotFound.
func (r ConsistencyRule) ResolveColumns(table string, schema []ColumnDescriptor) ([]string, error) {
	names := r.Columns()
	resolved := make([]string, len(names))
	for i, name := range names {
		col, ok := LookupColumn(schema, name)
		if !ok {
			return nil, fmt.Errorf("column %q %w in table %q", name, ErrNotFound, table)
		}
		resolved[i] = col.Name
	}
	return resolved, nil
}

// CheckResult is the outcome of one rule over one table.
type CheckResult struct {
	TotalRows          int64   `json:"total_rows"`
	MismatchRows       int64   `json:"mismatch_rows"`
	MismatchPercentage float64 `json:"mismatch_percentage"`
}

// NewCheckResult derives the mismatch percentage, rounded to 4 decimals.
func NewCheckResult(total, mismatches int64) CheckResult {
	return CheckResult{
		TotalRows:          total,
		MismatchRows:       mismatches,
		MismatchPercentage: Percentage(mismatches, total, 4),
	}
}

// RuleTally accumulates a CheckResult from streamed rows.
type RuleTally struct {
	rule        ConsistencyRule
	placeholder string
	total       int64
	mismatches  int64
}

func NewRuleTally(rule ConsistencyRule, placeholder string) *RuleTally {
	return &RuleTally{rule: rule, placeholder: placeholder}
}

// Observe counts one row. values must follow rule.Columns() order.
// Unless the rule sets NullAsZero, a row whose target or any addend is NULL
// never counts as a mismatch, matching SQL comparison semantics.
func (t *RuleTally) Observe(values []any) {
	if t.rule.FilterColumn != "" {
		fv := values[len(values)-1]
		if fv == nil || !strings.EqualFold(strings.TrimSpace(FormatValue(fv)), t.rule.FilterValue) {
			return
		}
	}
	t.total++

	target, ok := t.operand(values[0])
	if !ok {
		return
	}
	var sum float64
	for _, v := range values[1 : 1+len(t.rule.Addends)] {
		n, ok := t.operand(v)
		if !ok {
			return
		}
		sum += n
	}
	if math.Abs(target-sum) > 1e-9 {
		t.mismatches++
	}
}

func (t *RuleTally) operand(v any) (float64, bool) {
	n, ok := NormalizeCount(v, t.placeholder)
	if !ok && t.rule.NullAsZero {
		return 0, true
	}
	return n, ok
}

func (t *RuleTally) Result() CheckResult {
	return NewCheckResult(t.total, t.mismatches)
}

// NormalizeCount converts a stored count to a number. The placeholder text
// is zero, numeric types are used as-is, and other text is read by its
// leading numeric prefix (zero when there is none). ok is false for NULL.
func NormalizeCount(v any, placeholder string) (n float64, ok bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case int16:
		return float64(t), true
	case int8:
		return float64(t), true
	case int:
		return float64(t), true
	case uint64:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint8:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		return parseCountText(t, placeholder), true
	case []byte:
		return parseCountText(string(t), placeholder), true
	case driver.Valuer:
		inner, err := t.Value()
		if err != nil {
			return 0, false
		}
		return NormalizeCount(inner, placeholder)
	default:
		return parseCountText(fmt.Sprint(v), placeholder), true
	}
}

func parseCountText(s, placeholder string) float64 {
	s = strings.TrimSpace(s)
	if s == placeholder {
		return 0
	}
	end := numericPrefixLen(s)
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

// numericPrefixLen returns the length of the longest prefix of s that
// reads as a decimal number: optional sign, digits, optional fraction.
func numericPrefixLen(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}

// RuleOutcome is the result of one rule, or the reason it could not run.
type RuleOutcome struct {
	Rule   string
	Result *CheckResult
	Err    string
}

// RuleChecks holds the outcomes of every rule run against a table, in rule
// order. It serialises to a flat object keyed by rule name, with failed
// rules keyed "<rule>_error".
type RuleChecks []RuleOutcome

// Result returns the outcome of the named rule when it ran.
func (c RuleChecks) Result(rule string) (CheckResult, bool) {
	for _, o := range c {
		if o.Rule == rule && o.Result != nil {
			return *o.Result, true
		}
	}
	return CheckResult{}, false
}

// Error returns the failure message of the named rule.
func (c RuleChecks) Error(rule string) (string, bool) {
	for _, o := range c {
		if o.Rule == rule && o.Result == nil {
			return o.Err, true
		}
	}
	return "", false
}

// Keyed flattens the outcomes into the name-keyed form used in reports.
func (c RuleChecks) Keyed() *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any](len(c))
	for _, o := range c {
		if o.Result != nil {
			om.Set(o.Rule, *o.Result)
			continue
		}
		om.Set(o.Rule+"_error", o.Err)
	}
	return om
}

func (c RuleChecks) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Keyed())
}
