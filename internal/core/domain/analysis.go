package domain

import "math"

// Retention is the subset of a distribution kept in the report and the
// rule that selected it.
type Retention struct {
	Tag    RetentionTag `json:"tag"`
	Values []ValueCount `json:"values"`
}

// FieldAnalysis is the per-column entry of a table result. When the column
// could not be profiled only the descriptor and Error/ErrorKind are set.
type FieldAnalysis struct {
	ColumnDescriptor

	TotalRows          int64            `json:"total_rows"`
	NonNullCount       int64            `json:"non_null_count"`
	NullCount          int64            `json:"null_count"`
	NullPercentage     float64          `json:"null_percentage"`
	DistinctCount      int64            `json:"distinct_count"`
	DistinctPercentage float64          `json:"distinct_percentage"`
	Cardinality        CardinalityClass `json:"cardinality,omitempty"`
	Retention          *Retention       `json:"retention,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Failed reports whether the column could not be profiled.
func (f FieldAnalysis) Failed() bool {
	return f.Error != ""
}

// AnalyzeField combines a column's descriptor and distribution into its
// report entry, applying the enumeration policy to pick retained values.
func AnalyzeField(col ColumnDescriptor, dist *ValueDistribution, policy EnumerationPolicy) FieldAnalysis {
	retention := policy.Decide(col.Name, dist)
	return FieldAnalysis{
		ColumnDescriptor:   col,
		TotalRows:          dist.TotalRows,
		NonNullCount:       dist.NonNullCount,
		NullCount:          dist.NullCount(),
		NullPercentage:     Percentage(dist.NullCount(), dist.TotalRows, 2),
		DistinctCount:      dist.DistinctCount,
		DistinctPercentage: Percentage(dist.DistinctCount, dist.NonNullCount, 2),
		Cardinality:        ClassifyCardinality(dist.NonNullDistinct(), dist.NonNullCount),
		Retention:          &retention,
	}
}

// FailedField records a column whose profiling failed.
func FailedField(col ColumnDescriptor, err error) FieldAnalysis {
	return FieldAnalysis{
		ColumnDescriptor: col,
		Error:            err.Error(),
		ErrorKind:        ErrorKind(err),
	}
}

// Percentage returns part/whole*100 rounded to places decimals, or 0 when
// whole or part is zero. A non-zero share too small to survive rounding is
// returned unrounded so it never reads as 0.
func Percentage(part, whole int64, places int) float64 {
	if whole == 0 || part == 0 {
		return 0
	}
	pct := float64(part) / float64(whole) * 100
	if rounded := Round(pct, places); rounded != 0 {
		return rounded
	}
	return pct
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
