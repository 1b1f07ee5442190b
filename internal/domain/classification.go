package domain

import (
	"maps"
	"time"
)

// Method identifies the extractor that produced a score.
type Method string

const (
	MethodLexical    Method = "lexical"
	MethodStructural Method = "structural"
	MethodSchema     Method = "schema"
)

// ScoreMap is one extractor's opinion: category to score in [0, 1].
// Categories the extractor has no opinion on are absent.
type ScoreMap map[string]float64

// Clone returns an independent copy.
func (m ScoreMap) Clone() ScoreMap {
	if m == nil {
		return ScoreMap{}
	}
	return maps.Clone(m)
}

// CategoryScore is a single category/score pair.
type CategoryScore struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ReviewReason explains why a result needs a human.
type ReviewReason string

const (
	ReviewReasonNone          ReviewReason = ""
	ReviewReasonLowConfidence ReviewReason = "low_confidence"
)

// ClassificationResult is the selector output for one input.
type ClassificationResult struct {
	Primary      CategoryScore       `json:"primary"`
	Secondary    []CategoryScore     `json:"secondary"`
	ManualReview bool                `json:"manual_review"`
	ReviewReason ReviewReason        `json:"review_reason,omitempty"`
	Evidence     map[Method]ScoreMap `json:"evidence,omitempty"`
	Faults       []string            `json:"faults,omitempty"`

	// Fallback is set when no extractor had an opinion and the default
	// category was used.
	Fallback        bool   `json:"fallback,omitempty"`
	SnapshotVersion string `json:"snapshot_version,omitempty"`
}

// SecondaryCategories returns the secondary category names in rank order.
func (r *ClassificationResult) SecondaryCategories() []string {
	out := make([]string, 0, len(r.Secondary))
	for _, s := range r.Secondary {
		out = append(out, s.Category)
	}
	return out
}
