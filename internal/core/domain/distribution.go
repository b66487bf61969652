package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// RawValueCount is one group returned by a store's group-by-count query.
// A nil Value is the NULL group.
type RawValueCount struct {
	Value any
	Count int64
}

// ValueCount is one labelled bucket of a distribution.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ValueDistribution is the frequency profile of one column.
//
// Entries are ordered by count descending. Ties keep the order the store
// returned them in, which depends on the store's collation. DistinctCount
// is the number of buckets, the NULL bucket included.
type ValueDistribution struct {
	TotalRows     int64        `json:"total_rows"`
	NonNullCount  int64        `json:"non_null_count"`
	DistinctCount int64        `json:"distinct_count"`
	Entries       []ValueCount `json:"entries"`

	nullBucket bool
}

// NewValueDistribution builds a distribution from store counts and checks
// that they agree with each other. Disagreement usually means the table
// changed between queries; the error wraps ErrInconsistentDistribution.
func NewValueDistribution(totalRows, nonNullCount int64, groups []RawValueCount) (*ValueDistribution, error) {
	if nonNullCount < 0 || nonNullCount > totalRows {
		return nil, fmt.Errorf("%w: non-null count %d outside [0, %d]", ErrInconsistentDistribution, nonNullCount, totalRows)
	}

	d := &ValueDistribution{
		TotalRows:     totalRows,
		NonNullCount:  nonNullCount,
		DistinctCount: int64(len(groups)),
		Entries:       make([]ValueCount, 0, len(groups)),
	}

	var sum, nullCount int64
	for _, g := range groups {
		if g.Value == nil {
			d.nullBucket = true
			nullCount += g.Count
		}
		sum += g.Count
		d.Entries = append(d.Entries, ValueCount{Value: FormatValue(g.Value), Count: g.Count})
	}

	if sum != totalRows {
		return nil, fmt.Errorf("%w: bucket counts sum to %d, table has %d rows", ErrInconsistentDistribution, sum, totalRows)
	}
	if nullCount != totalRows-nonNullCount {
		return nil, fmt.Errorf("%w: NULL bucket holds %d rows, expected %d", ErrInconsistentDistribution, nullCount, totalRows-nonNullCount)
	}

	slices.SortStableFunc(d.Entries, func(a, b ValueCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return d, nil
}

// NullCount is the number of rows whose value is NULL.
func (d *ValueDistribution) NullCount() int64 {
	return d.TotalRows - d.NonNullCount
}

// NonNullDistinct is the number of distinct non-NULL values.
func (d *ValueDistribution) NonNullDistinct() int64 {
	if d.nullBucket {
		return d.DistinctCount - 1
	}
	return d.DistinctCount
}
