package service

import (
	"context"
	"errors"
	"testing"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assessmentColumns = []string{
	"tested_student_cnt", "proficient_student_cnt",
	"level1_cnt", "level2_cnt", "level3_cnt", "level4_cnt", "level5_cnt", "level6_cnt", "level7_cnt",
	"APIB_IND",
}

// assessmentRow lays out values in assessmentColumns order.
func assessmentRow(tested, proficient any, ind string, levels ...any) []any {
	row := []any{tested, proficient}
	row = append(row, levels...)
	return append(row, ind)
}

func assessmentStore() *mockStore {
	s := newMockStore()
	s.addTable("AP_IB_Results", assessmentColumns,
		// levels add up; AP proficient = 3+4+5 = 12
		assessmentRow(int64(20), int64(12), "AP", 2, 3, 4, 5, 3, 2, 1),
		// levels add up; AP proficient wrong
		assessmentRow(int64(10), int64(9), "AP", 1, 1, 2, 2, 2, 1, 1),
		// placeholders count as zero; IB proficient = 4+5+6+7 = 6
		assessmentRow("8", "6", "IB", "-", "1", "1", "2", "2", "1", "1"),
		// levels do not add up
		assessmentRow(int64(5), int64(0), "IB", 0, 0, 0, 0, 0, 0, 0),
	)
	return s
}

func newTestRuleEngine(t *testing.T) *RuleEngine {
	t.Helper()
	e, err := NewRuleEngine(nil, "", discardLogger())
	require.NoError(t, err)
	return e
}

func TestRuleEngine_RunChecks(t *testing.T) {
	t.Parallel()
	s := assessmentStore()
	cols, err := s.ListColumns(context.Background(), "AP_IB_Results")
	require.NoError(t, err)

	checks := newTestRuleEngine(t).RunChecks(context.Background(), s, "AP_IB_Results", cols, true)
	require.Len(t, checks, 3)

	levels, ok := checks.Result("levels_sum_check")
	require.True(t, ok)
	assert.Equal(t, domain.CheckResult{TotalRows: 4, MismatchRows: 1, MismatchPercentage: 25}, levels)

	ap, ok := checks.Result("ap_proficient_check")
	require.True(t, ok)
	assert.Equal(t, domain.CheckResult{TotalRows: 2, MismatchRows: 1, MismatchPercentage: 50}, ap)

	ib, ok := checks.Result("ib_proficient_check")
	require.True(t, ok)
	assert.Equal(t, int64(2), ib.TotalRows)
	assert.Equal(t, int64(0), ib.MismatchRows)
}

func TestRuleEngine_RunChecks_NotAssessment(t *testing.T) {
	t.Parallel()
	s := assessmentStore()
	before := s.callCount()

	checks := newTestRuleEngine(t).RunChecks(context.Background(), s, "AP_IB_Results", nil, false)
	assert.Empty(t, checks)
	assert.Equal(t, before, s.callCount())
}

func TestRuleEngine_RunChecks_MissingColumnIsolated(t *testing.T) {
	t.Parallel()
	s := newMockStore()
	// No APIB_IND: only the level sum can run.
	s.addTable("Scores", assessmentColumns[:9],
		[]any{int64(3), int64(1), 1, 1, 1, 0, 0, 0, 0},
	)
	cols, err := s.ListColumns(context.Background(), "Scores")
	require.NoError(t, err)

	checks := newTestRuleEngine(t).RunChecks(context.Background(), s, "Scores", cols, true)
	require.Len(t, checks, 3)

	levels, ok := checks.Result("levels_sum_check")
	require.True(t, ok)
	assert.Equal(t, int64(0), levels.MismatchRows)

	msg, ok := checks.Error("ap_proficient_check")
	require.True(t, ok)
	assert.Contains(t, msg, "APIB_IND")

	keyed := checks.Keyed()
	_, present := keyed.Get("ap_proficient_check_error")
	assert.True(t, present)
	_, present = keyed.Get("ib_proficient_check_error")
	assert.True(t, present)
	_, present = keyed.Get("levels_sum_check")
	assert.True(t, present)
}

func TestRuleEngine_RunChecks_ScanFailureIsolated(t *testing.T) {
	t.Parallel()
	s := assessmentStore()
	cols, err := s.ListColumns(context.Background(), "AP_IB_Results")
	require.NoError(t, err)

	flaky := &flakyScanStore{mockStore: s, failAt: 2}
	checks := newTestRuleEngine(t).RunChecks(context.Background(), flaky, "AP_IB_Results", cols, true)
	require.Len(t, checks, 3)

	_, ok := checks.Result("levels_sum_check")
	assert.True(t, ok)
	msg, ok := checks.Error("ap_proficient_check")
	require.True(t, ok)
	assert.Contains(t, msg, "connection reset")
	_, ok = checks.Result("ib_proficient_check")
	assert.True(t, ok)
}

// flakyScanStore fails the failAt-th ScanRows call.
type flakyScanStore struct {
	*mockStore
	scans  int
	failAt int
}

func (s *flakyScanStore) ScanRows(ctx context.Context, table string, columns []string, fn func([]any) error) error {
	s.scans++
	if s.scans == s.failAt {
		return errors.New("connection reset")
	}
	return s.mockStore.ScanRows(ctx, table, columns, fn)
}

func TestRuleEngine_RunChecks_EmptyTable(t *testing.T) {
	t.Parallel()
	s := newMockStore()
	s.addTable("Empty", assessmentColumns)
	cols, err := s.ListColumns(context.Background(), "Empty")
	require.NoError(t, err)

	checks := newTestRuleEngine(t).RunChecks(context.Background(), s, "Empty", cols, true)
	for _, name := range []string{"levels_sum_check", "ap_proficient_check", "ib_proficient_check"} {
		res, ok := checks.Result(name)
		require.True(t, ok, name)
		assert.Equal(t, domain.CheckResult{}, res, name)
	}
}

func TestNewRuleEngine_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRuleEngine([]domain.ConsistencyRule{{Name: "x", Target: "t"}}, "", discardLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	dup := domain.ConsistencyRule{Name: "x", Target: "t", Addends: []string{"a"}}
	_, err = NewRuleEngine([]domain.ConsistencyRule{dup, dup}, "", discardLogger())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	e, err := NewRuleEngine([]domain.ConsistencyRule{dup}, "n/a", discardLogger())
	require.NoError(t, err)
	assert.Len(t, e.Rules(), 1)
}
