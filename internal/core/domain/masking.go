package domain

import (
	"crypto/sha256"
	"fmt"
)

// MaskType represents a masking strategy for retained value labels.
type MaskType string

const (
	MaskRedact  MaskType = "redact"
	MaskHash    MaskType = "hash"
	MaskPartial MaskType = "partial"
	MaskNull    MaskType = "null"
)

// Valid returns true if the MaskType is a recognised masking strategy
// (including the zero value "", which means "no mask").
func (m MaskType) Valid() bool {
	switch m {
	case MaskRedact, MaskHash, MaskPartial, MaskNull, "":
		return true
	}
	return false
}

// ApplyMask transforms a value label. The NULL label is never masked, and
// MaskNull turns every label into the NULL label.
func ApplyMask(label string, maskType MaskType) string {
	if label == NullLabel {
		return label
	}

	switch maskType {
	case MaskRedact:
		return "***"
	case MaskHash:
		h := sha256.Sum256([]byte(label))
		return fmt.Sprintf("%x", h)
	case MaskPartial:
		return maskPartial(label)
	case MaskNull:
		return NullLabel
	default:
		return label
	}
}

// maskPartial reveals only the last 4 runes.
func maskPartial(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return "***" + s
	}
	masked := make([]rune, len(runes))
	for i := range masked {
		if i < len(runes)-4 {
			masked[i] = '*'
		} else {
			masked[i] = runes[i]
		}
	}
	return string(masked)
}

// MaskRetention masks the retained values of a field in place. Counts are
// left untouched so frequencies stay meaningful.
func MaskRetention(r *Retention, maskType MaskType) {
	if r == nil || maskType == "" {
		return
	}
	for i := range r.Values {
		r.Values[i].Value = ApplyMask(r.Values[i].Value, maskType)
	}
}
