package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// sampleDatabase builds a result with one profiled table, one failed table
// and one failed field.
func sampleDatabase(t *testing.T) *domain.DatabaseResult {
	t.Helper()

	policy, err := domain.NewEnumerationPolicy(domain.EnumerationConfig{Full: []string{"grade"}})
	require.NoError(t, err)

	src := domain.Source{Name: "schools db", Driver: domain.DriverSQLite, DSN: "/tmp/schools.db"}
	db := domain.NewDatabaseResult("run-1", src, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))

	grades := domain.NewTableResult("Grades")
	grades.Description = "Grade levels offered"
	grades.RowCount = 1500
	grades.ColumnCount = 2
	grades.Constraints.PrimaryKey = []domain.PrimaryKeyColumn{{Column: "grade", KeySequence: 1}}
	grades.Constraints.Indexes = []domain.Index{{Name: "pk", Unique: true}, {Name: "ix_school"}}
	grades.Constraints.RecordError(domain.ConstraintForeignKeys, errors.New("catalog unavailable"))

	gradeCol := domain.ColumnDescriptor{Name: "grade", DeclaredType: "TEXT", OrdinalPosition: 1, Remarks: strPtr("grade code")}
	dist, err := domain.NewValueDistribution(1500, 1400, []domain.RawValueCount{
		{Value: "K|1", Count: 1000},
		{Value: "12", Count: 400},
		{Value: nil, Count: 100},
	})
	require.NoError(t, err)
	grades.Fields.Set("grade", domain.AnalyzeField(gradeCol, dist, policy))

	schoolCol := domain.ColumnDescriptor{Name: "school", DeclaredType: "TEXT", OrdinalPosition: 2, Nullable: true}
	grades.Fields.Set("school", domain.FailedField(schoolCol, fmt.Errorf("%w: timeout", domain.ErrQuery)))

	res := domain.NewCheckResult(4, 1)
	grades.RuleChecks = domain.RuleChecks{
		{Rule: "levels_sum_check", Result: &res},
		{Rule: "ap_proficient_check", Err: "column APIB_IND not found"},
	}
	db.Tables.Set("Grades", grades)

	broken := domain.NewTableResult("Broken")
	broken.Fail(fmt.Errorf("%w: table Broken", domain.ErrNotFound))
	db.Tables.Set("Broken", broken)

	return db
}
