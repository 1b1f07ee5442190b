// Package classifier scores inputs against the configured categories and
// selects a primary category.
package classifier

import (
	"slices"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Extractor maps an input to a partial per-category score. Implementations
// must not retain or mutate either argument.
type Extractor interface {
	Method() domain.Method
	Extract(snap *catalog.Snapshot, in *domain.ClassificationInput) (domain.ScoreMap, error)
}

// DefaultExtractors returns the lexical, structural and schema extractors.
func DefaultExtractors() []Extractor {
	return []Extractor{LexicalScorer{}, StructuralMatcher{}, SchemaMatcher{}}
}

// LexicalScorer scores weighted keyword hits. Only string values are read;
// field names are left to SchemaMatcher.
type LexicalScorer struct{}

func (LexicalScorer) Method() domain.Method { return domain.MethodLexical }

func (LexicalScorer) Extract(snap *catalog.Snapshot, in *domain.ClassificationInput) (domain.ScoreMap, error) {
	scores := domain.ScoreMap{}
	texts := in.StringValues()
	if len(texts) == 0 {
		return scores, nil
	}

	// Hits arrive in text order, which follows payload map iteration.
	// Weights are summed sorted so the score is the same on every run.
	weights := make(map[string][]float64)
	for _, hit := range snap.Keywords.Match(texts...) {
		weights[hit.Category] = append(weights[hit.Category], hit.Weight)
	}
	for category, ws := range weights {
		total := snap.Keywords.Total(category)
		if total == 0 {
			continue
		}
		slices.Sort(ws)
		var sum float64
		for _, w := range ws {
			sum += w
		}
		if sum <= 0 {
			continue
		}
		scores[category] = min(1.0, sum/float64(total))
	}
	return scores, nil
}

// StructuralMatcher recognises token shapes such as item codes, order numbers
// and quantities with units. A category scores the best weight among its
// matching patterns.
type StructuralMatcher struct{}

func (StructuralMatcher) Method() domain.Method { return domain.MethodStructural }

func (StructuralMatcher) Extract(snap *catalog.Snapshot, in *domain.ClassificationInput) (domain.ScoreMap, error) {
	scores := domain.ScoreMap{}
	texts := in.StringValues()
	if len(texts) == 0 {
		return scores, nil
	}

	for _, p := range snap.Patterns {
		if p.Weight <= scores[p.Category] {
			continue
		}
		for _, text := range texts {
			if p.Regexp.MatchString(text) {
				scores[p.Category] = p.Weight
				break
			}
		}
	}
	return scores, nil
}

// SchemaMatcher compares payload field names with each category's known
// fields: weight × matched / total fields.
type SchemaMatcher struct{}

func (SchemaMatcher) Method() domain.Method { return domain.MethodSchema }

func (SchemaMatcher) Extract(snap *catalog.Snapshot, in *domain.ClassificationInput) (domain.ScoreMap, error) {
	scores := domain.ScoreMap{}
	if in.Format == domain.FormatText {
		return scores, nil
	}
	fields := in.FieldNames()
	if len(fields) == 0 {
		return scores, nil
	}

	for category, table := range snap.FieldTables {
		matched := 0
		for _, f := range fields {
			if _, ok := table.Fields[f]; ok {
				matched++
			}
		}
		if matched > 0 {
			scores[category] = table.Weight * float64(matched) / float64(len(fields))
		}
	}
	return scores, nil
}
