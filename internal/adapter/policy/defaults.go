package policy

import "github.com/guillermoBallester/strata/internal/core/domain"

// Field lists used when no policy file overrides them.
var (
	defaultFullFields = []string{
		"AGGREGATION_INDEX", "AGGREGATION_TYPE",
		"NRC_CODE", "NRC_DESC",
		"SUBGROUP_CODE", "SUBGROUP_NAME",
		"APIB_IND", "NYC_IND",
		"GRADE_LEVEL", "SUBJECT_AREA",
		"COUNTY_CODE", "COUNTY_NAME",
	}
	defaultBoundedFields = []string{
		"COURSE_ID", "COURSE_DESC", "STATE_CODE", "ITEM_DESC",
	}
)

// Default returns the built-in policy: the standard enumeration field
// lists, default thresholds and the built-in consistency rules.
func Default() *Policy {
	return &Policy{
		Enumeration: EnumerationConfig{
			Full:          append([]string(nil), defaultFullFields...),
			Bounded:       append([]string(nil), defaultBoundedFields...),
			BoundedCap:    domain.DefaultBoundedCap,
			AutoThreshold: domain.DefaultAutoThreshold,
			TopK:          domain.DefaultTopK,
		},
		Consistency: ConsistencyConfig{
			Placeholder: domain.DefaultPlaceholder,
		},
	}
}
