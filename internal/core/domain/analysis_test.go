package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeField(t *testing.T) {
	t.Parallel()
	dist, err := NewValueDistribution(10, 9, []RawValueCount{
		{Value: "A", Count: 4},
		{Value: "B", Count: 3},
		{Value: "C", Count: 2},
		{Value: nil, Count: 1},
	})
	require.NoError(t, err)

	col := ColumnDescriptor{Name: "GRADE_LEVEL", DeclaredType: "VARCHAR", Nullable: true}
	p, err := NewEnumerationPolicy(EnumerationConfig{Full: []string{"GRADE_LEVEL"}})
	require.NoError(t, err)

	got := AnalyzeField(col, dist, p)

	assert.Equal(t, col, got.ColumnDescriptor)
	assert.Equal(t, int64(10), got.TotalRows)
	assert.Equal(t, int64(9), got.NonNullCount)
	assert.Equal(t, int64(1), got.NullCount)
	assert.Equal(t, 10.0, got.NullPercentage)
	assert.Equal(t, int64(4), got.DistinctCount)
	assert.Equal(t, 44.44, got.DistinctPercentage)
	assert.Equal(t, CardinalityEnumLike, got.Cardinality)
	require.NotNil(t, got.Retention)
	assert.Equal(t, RetainFull, got.Retention.Tag)
	assert.Len(t, got.Retention.Values, 4)
	assert.False(t, got.Failed())
}

func TestAnalyzeField_EmptyTable(t *testing.T) {
	t.Parallel()
	dist, err := NewValueDistribution(0, 0, nil)
	require.NoError(t, err)
	p, err := NewEnumerationPolicy(EnumerationConfig{})
	require.NoError(t, err)

	got := AnalyzeField(ColumnDescriptor{Name: "X"}, dist, p)

	assert.Zero(t, got.NullPercentage)
	assert.Zero(t, got.DistinctPercentage)
	assert.Equal(t, RetainAutoSmall, got.Retention.Tag)
	assert.Empty(t, got.Retention.Values)
}

func TestFailedField(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("counting rows: %w: %w", ErrQuery, errors.New("no such table"))
	got := FailedField(ColumnDescriptor{Name: "X"}, err)

	assert.True(t, got.Failed())
	assert.Equal(t, KindQuery, got.ErrorKind)
	assert.Contains(t, got.Error, "no such table")
	assert.Nil(t, got.Retention)
}

func TestPercentage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, Percentage(5, 0, 2))
	assert.Equal(t, 33.33, Percentage(1, 3, 2))
	assert.Equal(t, 66.67, Percentage(2, 3, 2))
	assert.Equal(t, 12.5, Percentage(1, 8, 4))
	assert.Equal(t, 0.0, Percentage(0, 10, 2))

	tiny := Percentage(1, 300_000, 2)
	assert.Greater(t, tiny, 0.0)
	assert.Less(t, tiny, 0.01)
}

func TestAnalyzeField_LargeConstantColumn(t *testing.T) {
	t.Parallel()
	dist, err := NewValueDistribution(300_000, 300_000, []RawValueCount{{Value: "x", Count: 300_000}})
	require.NoError(t, err)
	p, err := NewEnumerationPolicy(EnumerationConfig{})
	require.NoError(t, err)

	got := AnalyzeField(ColumnDescriptor{Name: "STATE_CODE"}, dist, p)

	assert.Equal(t, int64(1), got.DistinctCount)
	assert.NotZero(t, got.DistinctPercentage)
	assert.InDelta(t, 100.0/300_000, got.DistinctPercentage, 1e-12)
	assert.Zero(t, got.NullPercentage)
	assert.Equal(t, CardinalityConstant, got.Cardinality)
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("open: %w", ErrConnection), KindConnection},
		{fmt.Errorf("column %q %w", "x", ErrNotFound), KindLookup},
		{fmt.Errorf("%w: timeout", ErrQuery), KindQuery},
		{fmt.Errorf("%w: %w", ErrConnection, ErrConfiguration), KindConfiguration},
		{errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
