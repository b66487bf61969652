package domain

import (
	"fmt"
	"strings"
)

// RetentionTag names the enumeration rule that selected a column's
// retained values.
type RetentionTag string

const (
	RetainFull      RetentionTag = "full"
	RetainBounded   RetentionTag = "bounded"
	RetainAutoSmall RetentionTag = "auto-small"
	RetainTopK      RetentionTag = "top-K"
)

const (
	DefaultBoundedCap    = 500
	DefaultAutoThreshold = 20
	DefaultTopK          = 50
)

// EnumerationConfig is the operator-facing form of an EnumerationPolicy.
// Zero thresholds fall back to the defaults.
type EnumerationConfig struct {
	Full          []string
	Bounded       []string
	BoundedCap    int
	AutoThreshold int
	TopK          int
	// FoldCase matches column names against the sets case-insensitively.
	FoldCase bool
}

// EnumerationPolicy decides how many distribution entries of a column are
// kept. It is immutable once built and safe for concurrent use.
type EnumerationPolicy struct {
	full          map[string]struct{}
	bounded       map[string]struct{}
	boundedCap    int64
	autoThreshold int64
	topK          int
	foldCase      bool
}

// RetentionRule is one entry of the ordered enumeration rule list.
// KeepAll rules retain every entry; the others retain the first TopK.
type RetentionRule struct {
	Tag     RetentionTag
	KeepAll bool
	applies func(p EnumerationPolicy, column string, dist *ValueDistribution) bool
}

// RetentionRules is evaluated in order; the first rule that applies wins.
var RetentionRules = []RetentionRule{
	{
		Tag:     RetainFull,
		KeepAll: true,
		applies: func(p EnumerationPolicy, column string, _ *ValueDistribution) bool {
			return p.inSet(p.full, column)
		},
	},
	{
		Tag:     RetainBounded,
		KeepAll: true,
		applies: func(p EnumerationPolicy, column string, dist *ValueDistribution) bool {
			return p.inSet(p.bounded, column) && dist.DistinctCount <= p.boundedCap
		},
	},
	{
		Tag:     RetainAutoSmall,
		KeepAll: true,
		applies: func(p EnumerationPolicy, _ string, dist *ValueDistribution) bool {
			return dist.DistinctCount <= p.autoThreshold
		},
	},
	{
		Tag: RetainTopK,
		applies: func(EnumerationPolicy, string, *ValueDistribution) bool {
			return true
		},
	},
}

// NewEnumerationPolicy validates cfg and builds a policy from it. The name
// sets are copied, so later changes to cfg do not affect the policy.
func NewEnumerationPolicy(cfg EnumerationConfig) (EnumerationPolicy, error) {
	if cfg.BoundedCap < 0 || cfg.AutoThreshold < 0 || cfg.TopK < 0 {
		return EnumerationPolicy{}, fmt.Errorf("%w: enumeration thresholds must not be negative", ErrConfiguration)
	}

	p := EnumerationPolicy{
		boundedCap:    int64(orDefault(cfg.BoundedCap, DefaultBoundedCap)),
		autoThreshold: int64(orDefault(cfg.AutoThreshold, DefaultAutoThreshold)),
		topK:          orDefault(cfg.TopK, DefaultTopK),
		foldCase:      cfg.FoldCase,
	}
	p.full = p.nameSet(cfg.Full)
	p.bounded = p.nameSet(cfg.Bounded)
	return p, nil
}

// Decide applies the first matching retention rule to dist. The result
// never aliases dist.Entries.
func (p EnumerationPolicy) Decide(column string, dist *ValueDistribution) Retention {
	for _, rule := range RetentionRules {
		if !rule.applies(p, column, dist) {
			continue
		}
		n := len(dist.Entries)
		if !rule.KeepAll {
			n = min(n, p.topK)
		}
		values := make([]ValueCount, n)
		copy(values, dist.Entries[:n])
		return Retention{Tag: rule.Tag, Values: values}
	}
	// Unreachable: the last rule always applies.
	return Retention{Tag: RetainTopK}
}

// IsFull reports whether column is in the full-enumeration set.
func (p EnumerationPolicy) IsFull(column string) bool {
	return p.inSet(p.full, column)
}

func (p EnumerationPolicy) BoundedCap() int    { return int(p.boundedCap) }
func (p EnumerationPolicy) AutoThreshold() int { return int(p.autoThreshold) }
func (p EnumerationPolicy) TopK() int          { return p.topK }

func (p EnumerationPolicy) nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[p.key(n)] = struct{}{}
	}
	return set
}

func (p EnumerationPolicy) inSet(set map[string]struct{}, column string) bool {
	_, ok := set[p.key(column)]
	return ok
}

func (p EnumerationPolicy) key(name string) string {
	if p.foldCase {
		return strings.ToLower(name)
	}
	return name
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
