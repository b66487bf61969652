package domain

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TableResult is everything learned about one table. A table-level failure
// leaves the structural fields empty and sets Error/ErrorKind.
type TableResult struct {
	Name                string                                        `json:"table_name"`
	Description         string                                        `json:"description,omitempty"`
	RowCount            int64                                         `json:"row_count"`
	ColumnCount         int                                           `json:"column_count"`
	Assessment          bool                                          `json:"assessment,omitempty"`
	Schema              []ColumnDescriptor                            `json:"schema"`
	Constraints         ConstraintSet                                 `json:"constraints"`
	InferredForeignKeys []InferredForeignKey                          `json:"inferred_foreign_keys,omitempty"`
	Fields              *orderedmap.OrderedMap[string, FieldAnalysis] `json:"field_analysis"`
	RuleChecks          RuleChecks                                    `json:"rule_checks,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func NewTableResult(name string) *TableResult {
	return &TableResult{
		Name:   name,
		Fields: orderedmap.New[string, FieldAnalysis](),
	}
}

// Fail records a table-level error.
func (t *TableResult) Fail(err error) {
	t.Error = err.Error()
	t.ErrorKind = ErrorKind(err)
}

// FailedFields counts columns that could not be profiled.
func (t *TableResult) FailedFields() int {
	n := 0
	for pair := t.Fields.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Failed() {
			n++
		}
	}
	return n
}

// DatabaseResult is the analysis of one data source.
type DatabaseResult struct {
	RunID      string                                       `json:"run_id"`
	Name       string                                       `json:"database"`
	Driver     string                                       `json:"driver"`
	Location   string                                       `json:"location"`
	StartedAt  time.Time                                    `json:"started_at"`
	FinishedAt time.Time                                    `json:"finished_at"`
	Tables     *orderedmap.OrderedMap[string, *TableResult] `json:"tables"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func NewDatabaseResult(runID string, src Source, started time.Time) *DatabaseResult {
	return &DatabaseResult{
		RunID:     runID,
		Name:      src.Name,
		Driver:    src.Driver,
		Location:  src.Location(),
		StartedAt: started,
		Tables:    orderedmap.New[string, *TableResult](),
	}
}

// Fail records a database-level error such as a failed connection.
func (d *DatabaseResult) Fail(err error) {
	d.Error = err.Error()
	d.ErrorKind = ErrorKind(err)
}

// RunResult groups the databases analysed in one invocation.
type RunResult struct {
	RunID     string                                          `json:"run_id"`
	Databases *orderedmap.OrderedMap[string, *DatabaseResult] `json:"databases"`
}

func NewRunResult(runID string) *RunResult {
	return &RunResult{
		RunID:     runID,
		Databases: orderedmap.New[string, *DatabaseResult](),
	}
}
