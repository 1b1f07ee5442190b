package assignment

import (
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Plan resolves where a record is stored. Vector collections keep first-seen
// order: primary, then secondaries, then the default collection.
func Plan(snap *catalog.Snapshot, primary string, secondary []domain.CategoryAssignment) domain.StoragePlan {
	plan := domain.StoragePlan{
		PrimaryTable: snap.Table(primary),
		CrossLinks:   make([]domain.CrossLink, 0, len(secondary)),
	}

	seen := make(map[string]struct{})
	add := func(names ...string) {
		for _, n := range names {
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			plan.VectorCollections = append(plan.VectorCollections, n)
		}
	}

	add(snap.CollectionsFor(primary)...)
	for _, s := range secondary {
		add(snap.CollectionsFor(s.Category)...)
		plan.CrossLinks = append(plan.CrossLinks, domain.CrossLink{
			Category:     s.Category,
			Table:        snap.Table(s.Category),
			Relationship: s.Relationship,
		})
	}
	add(snap.DefaultCollection)

	if plan.VectorCollections == nil {
		plan.VectorCollections = []string{}
	}
	return plan
}

// TerminalState decides where a classified request ends up. Rejected input
// never reaches this point; callers mark it FAILED themselves.
func TerminalState(snap *catalog.Snapshot, result *domain.ClassificationResult, report *domain.ValidationReport) domain.RequestState {
	switch {
	case result == nil:
		return domain.StateFailed
	case result.ManualReview:
		return domain.StateManualReview
	case report.Status() == domain.StatusInvalid && snap.InvalidRecords != catalog.InvalidAccept:
		return domain.StateManualReview
	default:
		return domain.StateCompleted
	}
}
