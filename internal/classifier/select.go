package classifier

import (
	"cmp"
	"slices"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Selection is the selector's decision over a combined confidence map.
type Selection struct {
	Primary      domain.CategoryScore
	Secondary    []domain.CategoryScore
	ManualReview bool
	ReviewReason domain.ReviewReason
	Fallback     bool
}

// Select picks the primary category (ties go to the higher-priority category),
// the secondary categories above the secondary threshold, and decides whether
// the result needs manual review. An empty map selects the default category.
func Select(snap *catalog.Snapshot, combined domain.ScoreMap) Selection {
	var sel Selection

	ranked := Rank(snap, combined)
	if len(ranked) == 0 {
		sel.Primary = domain.CategoryScore{Category: snap.DefaultCategory, Confidence: snap.DefaultConfidence}
		sel.Fallback = true
	} else {
		sel.Primary = ranked[0]
		for _, cs := range ranked[1:] {
			if len(sel.Secondary) >= snap.MaxSecondary {
				break
			}
			if cs.Confidence < snap.SecondaryThreshold {
				break
			}
			sel.Secondary = append(sel.Secondary, cs)
		}
	}
	if sel.Secondary == nil {
		sel.Secondary = []domain.CategoryScore{}
	}

	// Exactly at the threshold does not need review.
	if sel.Primary.Confidence < snap.ReviewThreshold {
		sel.ManualReview = true
		sel.ReviewReason = domain.ReviewReasonLowConfidence
	}
	return sel
}

// Rank orders a confidence map by confidence, then category priority, then name.
func Rank(snap *catalog.Snapshot, scores domain.ScoreMap) []domain.CategoryScore {
	ranked := make([]domain.CategoryScore, 0, len(scores))
	for category, confidence := range scores {
		ranked = append(ranked, domain.CategoryScore{Category: category, Confidence: clamp(confidence)})
	}
	slices.SortFunc(ranked, func(a, b domain.CategoryScore) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		if c := cmp.Compare(snap.Priority(a.Category), snap.Priority(b.Category)); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return ranked
}
