package domain

// CardinalityClass summarises how a column's non-NULL values spread across
// its rows.
type CardinalityClass string

const (
	CardinalityEmpty      CardinalityClass = "empty"
	CardinalityConstant   CardinalityClass = "constant"
	CardinalityUnique     CardinalityClass = "unique"
	CardinalityNearUnique CardinalityClass = "near_unique"
	CardinalityEnumLike   CardinalityClass = "enum_like"
	CardinalityBounded    CardinalityClass = "bounded"
	CardinalityHigh       CardinalityClass = "high_cardinality"
)

// nearUniqueRatio is the distinct/rows share from which a column reads as
// a candidate key.
const nearUniqueRatio = 0.9

// ClassifyCardinality classifies a column from its distinct non-NULL values
// and non-NULL rows. The enum_like and bounded bounds follow the default
// enumeration thresholds, so the class predicts what a default policy
// retains.
func ClassifyCardinality(distinct, rows int64) CardinalityClass {
	switch {
	case rows == 0:
		return CardinalityEmpty
	case distinct == rows:
		return CardinalityUnique
	case distinct == 1:
		return CardinalityConstant
	case float64(distinct)/float64(rows) >= nearUniqueRatio:
		return CardinalityNearUnique
	case distinct <= DefaultAutoThreshold:
		return CardinalityEnumLike
	case distinct <= DefaultBoundedCap:
		return CardinalityBounded
	default:
		return CardinalityHigh
	}
}
