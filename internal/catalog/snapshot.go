package catalog

import (
	"regexp"
	"slices"
	"time"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Predicate reports whether a present field value satisfies a business rule.
type Predicate func(value any) bool

// PredicateResolver turns a business rule name and its params into a
// Predicate. Unknown names must return an error.
type PredicateResolver interface {
	Resolve(name string, params map[string]string, shapes map[string]*regexp.Regexp) (Predicate, domain.ViolationClass, error)
}

// CompiledRule is a ValidationRule ready to evaluate.
type CompiledRule struct {
	domain.ValidationRule
	// Predicate and Class are set for business rules only.
	Predicate Predicate
	Class     domain.ViolationClass
}

// CompiledPattern is a structural pattern with its regexp.
type CompiledPattern struct {
	Name     string
	Category string
	Weight   float64
	Regexp   *regexp.Regexp
}

// CompiledFieldTable is a field table keyed by lowercased field name.
type CompiledFieldTable struct {
	Weight float64
	Fields map[string]struct{}
}

// CompiledSubcategory carries lowercased fields and padded keyword terms.
type CompiledSubcategory struct {
	Name     string
	Fields   []string
	Keywords []string
}

// CompiledDetector is a ready cross-reference detector.
type CompiledDetector struct {
	Name         string
	Category     string
	Subcategory  string
	Relationship string
	Confidence   float64
	Fields       []string
	Keywords     []string
}

// Snapshot is an immutable, compiled Configuration. Every stage of one
// request reads the same Snapshot.
type Snapshot struct {
	Version    string
	Generation uint64
	LoadedAt   time.Time

	Categories         []string
	DefaultCategory    string
	DefaultConfidence  float64
	DefaultCollection  string
	ReviewThreshold    float64
	SecondaryThreshold float64
	MaxSecondary       int
	Elevation          Elevation
	InvalidRecords     InvalidPolicy

	Keywords      *KeywordIndex
	Patterns      []CompiledPattern
	FieldTables   map[string]CompiledFieldTable
	Shapes        map[string]*regexp.Regexp
	Tables        map[string]string
	Collections   map[string][]string
	RuleSets      map[string][]CompiledRule
	Subcategories map[string][]CompiledSubcategory
	Detectors     []CompiledDetector

	priority map[string]int
	source   *Configuration
}

// HasCategory reports whether category is declared.
func (s *Snapshot) HasCategory(category string) bool {
	_, ok := s.priority[category]
	return ok
}

// Priority returns the rank of category, lower is stronger. Undeclared
// categories rank after all declared ones.
func (s *Snapshot) Priority(category string) int {
	if p, ok := s.priority[category]; ok {
		return p
	}
	return len(s.Categories)
}

// RuleSet returns the rules for category in evaluation order.
func (s *Snapshot) RuleSet(category string) ([]CompiledRule, bool) {
	rules, ok := s.RuleSets[category]
	return rules, ok
}

// Table returns the primary table for category.
func (s *Snapshot) Table(category string) string {
	return s.Tables[category]
}

// CollectionsFor returns the vector collections for category.
func (s *Snapshot) CollectionsFor(category string) []string {
	return slices.Clone(s.Collections[category])
}

// Source returns a deep copy of the Configuration this snapshot was compiled from.
func (s *Snapshot) Source() *Configuration {
	if s.source == nil {
		return nil
	}
	return s.source.Clone()
}
