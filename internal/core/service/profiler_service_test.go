package service

import (
	"context"
	"errors"
	"testing"

	"github.com/guillermoBallester/strata/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradesStore() *mockStore {
	s := newMockStore()
	s.addTable("Grades", []string{"grade", "school"},
		[]any{"A", "North"},
		[]any{"B", "North"},
		[]any{"A", nil},
		[]any{nil, "South"},
		[]any{"A", "South"},
	)
	return s
}

func TestValueProfiler_Profile(t *testing.T) {
	t.Parallel()
	p := NewValueProfiler(gradesStore())

	dist, err := p.Profile(context.Background(), "Grades", "grade")
	require.NoError(t, err)

	assert.Equal(t, int64(5), dist.TotalRows)
	assert.Equal(t, int64(4), dist.NonNullCount)
	assert.Equal(t, int64(3), dist.DistinctCount)
	assert.Equal(t, int64(1), dist.NullCount())
	assert.Equal(t, []domain.ValueCount{
		{Value: "A", Count: 3},
		{Value: "B", Count: 1},
		{Value: domain.NullLabel, Count: 1},
	}, dist.Entries)
}

func TestValueProfiler_Profile_ColumnLookupIgnoresCase(t *testing.T) {
	t.Parallel()
	p := NewValueProfiler(gradesStore())

	dist, err := p.Profile(context.Background(), "Grades", "GRADE")
	require.NoError(t, err)
	assert.Equal(t, int64(5), dist.TotalRows)
}

func TestValueProfiler_Profile_UnknownColumn(t *testing.T) {
	t.Parallel()
	s := gradesStore()
	p := NewValueProfiler(s)

	_, err := p.Profile(context.Background(), "Grades", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindLookup, domain.ErrorKind(err))
}

func TestValueProfiler_Profile_UnknownTable(t *testing.T) {
	t.Parallel()
	p := NewValueProfiler(gradesStore())

	_, err := p.Profile(context.Background(), "Nope", "grade")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValueProfiler_Profile_EmptySchemaIsLookupError(t *testing.T) {
	t.Parallel()
	s := newMockStore()
	s.addTable("Empty", nil)
	p := NewValueProfiler(s)

	_, err := p.Profile(context.Background(), "Empty", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValueProfiler_Profile_QueryFailure(t *testing.T) {
	t.Parallel()
	s := gradesStore()
	s.fail("ValueCounts:Grades:grade", errors.New("syntax error near GROUP"))
	p := NewValueProfiler(s)

	_, err := p.Profile(context.Background(), "Grades", "grade")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuery)
	assert.Contains(t, err.Error(), "syntax error near GROUP")

	// Other columns are unaffected.
	_, err = p.Profile(context.Background(), "Grades", "school")
	assert.NoError(t, err)
}

func TestValueProfiler_Profile_KeepsStoreClassification(t *testing.T) {
	t.Parallel()
	s := gradesStore()
	s.fail("CountRows", domain.ErrConnection)
	p := NewValueProfiler(s)

	_, err := p.Profile(context.Background(), "Grades", "grade")
	require.Error(t, err)
	assert.Equal(t, domain.KindConnection, domain.ErrorKind(err))
}

func TestValueProfiler_Profile_InconsistentCountsAreQueryErrors(t *testing.T) {
	t.Parallel()
	s := gradesStore()
	p := NewValueProfiler(inconsistentStore{mockStore: s})

	_, err := p.Profile(context.Background(), "Grades", "grade")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuery)
	assert.ErrorIs(t, err, domain.ErrInconsistentDistribution)
}

// inconsistentStore reports one more row than its groups contain.
type inconsistentStore struct {
	*mockStore
}

func (s inconsistentStore) CountRows(ctx context.Context, table string) (int64, error) {
	n, err := s.mockStore.CountRows(ctx, table)
	return n + 1, err
}

func TestValueProfiler_Columns_Cached(t *testing.T) {
	t.Parallel()
	s := gradesStore()
	p := NewValueProfiler(s)

	_, err := p.Columns(context.Background(), "Grades")
	require.NoError(t, err)
	before := s.callCount()

	_, err = p.Columns(context.Background(), "Grades")
	require.NoError(t, err)
	assert.Equal(t, before, s.callCount())
}
