// Package assignment turns a classification and its validation report into
// the multi-category assignment bundle and storage plan.
package assignment

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/classifier"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Orchestrator builds AssignmentBundles. It is stateless.
type Orchestrator struct {
	logger infralogger.Logger
}

// New creates an Orchestrator.
func New(log infralogger.Logger) *Orchestrator {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Orchestrator{logger: log}
}

// Assemble combines result, report and the cross-category detectors into a
// bundle. A nil report marks the primary assignment as unvalidated.
func (o *Orchestrator) Assemble(
	snap *catalog.Snapshot,
	result *domain.ClassificationResult,
	report *domain.ValidationReport,
	in *domain.ClassificationInput,
) domain.AssignmentBundle {
	ev := newEvidence(in)
	category := result.Primary.Category

	primary := domain.CategoryAssignment{
		Category:         category,
		Subcategory:      resolveSubcategory(snap, category, ev),
		Confidence:       Elevate(snap, result),
		AssignmentType:   domain.AssignmentPrimary,
		Relationship:     domain.RelationshipPrimary,
		ValidationStatus: report.Status(),
	}

	secondary := detect(snap, category, ev)

	refs := make([]domain.CrossReference, 0, len(secondary))
	for _, s := range secondary {
		refs = append(refs, domain.CrossReference{
			Description:  describe(category, s),
			Category:     s.Category,
			Relationship: s.Relationship,
		})
	}

	bundle := domain.AssignmentBundle{
		Primary:          primary,
		Secondary:        secondary,
		CrossReferences:  refs,
		Storage:          Plan(snap, category, secondary),
		TotalAssignments: 1 + len(secondary),
	}

	if primary.Confidence != result.Primary.Confidence {
		o.logger.Debug("Primary confidence elevated by schema evidence",
			infralogger.String("category", category),
			infralogger.Float64("from", result.Primary.Confidence),
			infralogger.Float64("to", primary.Confidence),
		)
	}
	return bundle
}

// Elevate returns the primary confidence, lifted by the configured elevation
// factor when the schema evidence alone names the primary category with a
// high score and a clear margin over the runner-up.
func Elevate(snap *catalog.Snapshot, result *domain.ClassificationResult) float64 {
	c := result.Primary.Confidence
	e := snap.Elevation
	if e.Factor <= 0 || result.Fallback {
		return c
	}

	ranked := classifier.Rank(snap, result.Evidence[domain.MethodSchema])
	if len(ranked) == 0 || ranked[0].Category != result.Primary.Category {
		return c
	}
	top := ranked[0].Confidence
	var runnerUp float64
	if len(ranked) > 1 {
		runnerUp = ranked[1].Confidence
	}
	if top < e.MinSchemaScore || top-runnerUp < e.MinMargin {
		return c
	}

	return min(1.0, c+e.Factor*(1-c))
}

// detect runs the cross-category detectors. The primary category is never a
// secondary; when several detectors name one category the strongest wins.
func detect(snap *catalog.Snapshot, primary string, ev evidence) []domain.CategoryAssignment {
	best := make(map[string]domain.CategoryAssignment)
	for _, d := range snap.Detectors {
		if d.Category == primary || !ev.matchesAny(d.Fields, d.Keywords) {
			continue
		}
		if prev, ok := best[d.Category]; ok && prev.Confidence >= d.Confidence {
			continue
		}

		sub := d.Subcategory
		if sub == domain.DefaultSubcategory {
			sub = resolveSubcategory(snap, d.Category, ev)
		}
		best[d.Category] = domain.CategoryAssignment{
			Category:         d.Category,
			Subcategory:      sub,
			Confidence:       d.Confidence,
			AssignmentType:   domain.AssignmentSecondary,
			Relationship:     d.Relationship,
			ValidationStatus: domain.StatusUnvalidated,
		}
	}

	out := make([]domain.CategoryAssignment, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.CategoryAssignment) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(snap.Priority(a.Category), snap.Priority(b.Category))
	})
	if len(out) > snap.MaxSecondary {
		out = out[:snap.MaxSecondary]
	}
	return out
}

// resolveSubcategory picks the subcategory with the most evidence. Ties go to
// the one declared first; no evidence yields the default subcategory.
func resolveSubcategory(snap *catalog.Snapshot, category string, ev evidence) string {
	name, bestCount := domain.DefaultSubcategory, 0
	for _, sub := range snap.Subcategories[category] {
		if n := ev.count(sub.Fields, sub.Keywords); n > bestCount {
			name, bestCount = sub.Name, n
		}
	}
	return name
}

func describe(primary string, a domain.CategoryAssignment) string {
	return fmt.Sprintf("%s record %s %s",
		humanize(primary), strings.ReplaceAll(a.Relationship, "_", " "), humanize(a.Category))
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
