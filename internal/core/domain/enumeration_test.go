package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// distributionOf builds a distribution with n distinct non-null values,
// value i appearing n-i times.
func distributionOf(t *testing.T, n int) *ValueDistribution {
	t.Helper()
	groups := make([]RawValueCount, n)
	var total int64
	for i := range n {
		groups[i] = RawValueCount{Value: fmt.Sprintf("v%03d", i), Count: int64(n - i)}
		total += int64(n - i)
	}
	d, err := NewValueDistribution(total, total, groups)
	require.NoError(t, err)
	return d
}

func testPolicy(t *testing.T) EnumerationPolicy {
	t.Helper()
	p, err := NewEnumerationPolicy(EnumerationConfig{
		Full:    []string{"SUBJECT_AREA", "COUNTY_NAME"},
		Bounded: []string{"COURSE_ID", "ITEM_DESC"},
	})
	require.NoError(t, err)
	return p
}

func TestNewEnumerationPolicy_Defaults(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)
	assert.Equal(t, DefaultBoundedCap, p.BoundedCap())
	assert.Equal(t, DefaultAutoThreshold, p.AutoThreshold())
	assert.Equal(t, DefaultTopK, p.TopK())
}

func TestNewEnumerationPolicy_Negative(t *testing.T) {
	t.Parallel()
	_, err := NewEnumerationPolicy(EnumerationConfig{TopK: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDecide(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)

	tests := []struct {
		name     string
		column   string
		distinct int
		wantTag  RetentionTag
		wantLen  int
	}{
		{"full keeps everything", "SUBJECT_AREA", 1200, RetainFull, 1200},
		{"full keeps 10,000 values", "SUBJECT_AREA", 10_000, RetainFull, 10_000},
		{"full wins even when small", "COUNTY_NAME", 3, RetainFull, 3},
		{"bounded under cap", "COURSE_ID", 420, RetainBounded, 420},
		{"bounded at cap", "COURSE_ID", 500, RetainBounded, 500},
		{"bounded over cap falls to top-K", "ITEM_DESC", 812, RetainTopK, 50},
		{"bounded over cap never auto-small", "COURSE_ID", 501, RetainTopK, 50},
		{"auto-small at threshold", "LEA_NAME", 20, RetainAutoSmall, 20},
		{"top-K above threshold", "LEA_NAME", 21, RetainTopK, 21},
		{"top-K truncates", "LEA_NAME", 3000, RetainTopK, 50},
		{"empty column", "LEA_NAME", 0, RetainAutoSmall, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dist := distributionOf(t, tt.distinct)
			got := p.Decide(tt.column, dist)
			assert.Equal(t, tt.wantTag, got.Tag)
			assert.Len(t, got.Values, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, dist.Entries[:tt.wantLen], got.Values, "retained values are a prefix of the distribution")
			}
		})
	}
}

func TestDecide_BoundedIncludesNullBucket(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)
	// 500 non-null values plus NULL makes 501 buckets: over the cap.
	groups := make([]RawValueCount, 0, 501)
	var total int64
	for i := range 500 {
		groups = append(groups, RawValueCount{Value: fmt.Sprint(i), Count: 1})
		total++
	}
	groups = append(groups, RawValueCount{Value: nil, Count: 1})
	dist, err := NewValueDistribution(total+1, total, groups)
	require.NoError(t, err)

	assert.Equal(t, RetainTopK, p.Decide("COURSE_ID", dist).Tag)
}

func TestDecide_DoesNotAlias(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)
	dist := distributionOf(t, 5)
	got := p.Decide("SUBJECT_AREA", dist)
	got.Values[0].Value = "changed"
	assert.Equal(t, "v000", dist.Entries[0].Value)
}

func TestDecide_Idempotent(t *testing.T) {
	t.Parallel()
	p := testPolicy(t)
	dist := distributionOf(t, 75)
	assert.Equal(t, p.Decide("LEA_NAME", dist), p.Decide("LEA_NAME", dist))
}

func TestDecide_CaseSensitivity(t *testing.T) {
	t.Parallel()
	dist := distributionOf(t, 100)

	strict := testPolicy(t)
	assert.Equal(t, RetainTopK, strict.Decide("subject_area", dist).Tag)

	folded, err := NewEnumerationPolicy(EnumerationConfig{Full: []string{"SUBJECT_AREA"}, FoldCase: true})
	require.NoError(t, err)
	assert.Equal(t, RetainFull, folded.Decide("subject_area", dist).Tag)
	assert.True(t, folded.IsFull("Subject_Area"))
}

func TestDecide_CustomThresholds(t *testing.T) {
	t.Parallel()
	p, err := NewEnumerationPolicy(EnumerationConfig{
		Bounded:       []string{"STATE_CODE"},
		BoundedCap:    10,
		AutoThreshold: 5,
		TopK:          3,
	})
	require.NoError(t, err)

	assert.Equal(t, RetainBounded, p.Decide("STATE_CODE", distributionOf(t, 10)).Tag)
	assert.Equal(t, RetainAutoSmall, p.Decide("OTHER", distributionOf(t, 5)).Tag)
	got := p.Decide("OTHER", distributionOf(t, 6))
	assert.Equal(t, RetainTopK, got.Tag)
	assert.Len(t, got.Values, 3)
}

func TestRetentionRules_Order(t *testing.T) {
	t.Parallel()
	tags := make([]RetentionTag, len(RetentionRules))
	for i, r := range RetentionRules {
		tags[i] = r.Tag
	}
	assert.Equal(t, []RetentionTag{RetainFull, RetainBounded, RetainAutoSmall, RetainTopK}, tags)
}
