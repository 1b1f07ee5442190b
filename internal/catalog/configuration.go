// Package catalog owns the categorizer configuration: the declarative
// Configuration document, its compiled immutable Snapshot and the Store that
// swaps snapshots atomically on reload.
package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

const (
	defaultConfidence         = 0.5
	defaultReviewThreshold    = 0.8
	defaultSecondaryThreshold = 0.5
	defaultMaxSecondary       = 3

	defaultElevationFactor   = 0.5
	defaultElevationMinScore = 0.8
	defaultElevationMargin   = 0.3
)

// InvalidPolicy decides the terminal state of confident but invalid records.
type InvalidPolicy string

const (
	InvalidReview InvalidPolicy = "review"
	InvalidAccept InvalidPolicy = "accept"
)

// Configuration is the declarative, serialisable categorizer setup.
type Configuration struct {
	Version string `json:"version" yaml:"version"`
	// Categories in priority order; earlier wins ties.
	Categories []string `json:"categories" yaml:"categories"`

	Defaults       Defaults      `json:"defaults"        yaml:"defaults"`
	Thresholds     Thresholds    `json:"thresholds"      yaml:"thresholds"`
	Elevation      *Elevation    `json:"elevation"       yaml:"elevation"`
	InvalidRecords InvalidPolicy `json:"invalid_records" yaml:"invalid_records"`

	Keywords map[string][]Keyword  `json:"keywords" yaml:"keywords"`
	Patterns []Pattern             `json:"patterns" yaml:"patterns"`
	Fields   map[string]FieldTable `json:"fields"   yaml:"fields"`
	Shapes   map[string]string     `json:"shapes"   yaml:"shapes"`

	Tables      map[string]string   `json:"tables"      yaml:"tables"`
	Collections map[string][]string `json:"collections" yaml:"collections"`

	RuleSets        map[string][]domain.ValidationRule `json:"rule_sets"        yaml:"rule_sets"`
	Subcategories   map[string][]Subcategory           `json:"subcategories"    yaml:"subcategories"`
	CrossReferences []CrossReferenceRule               `json:"cross_references" yaml:"cross_references"`
}

// Defaults covers the empty-evidence fallback and the always-on collection.
type Defaults struct {
	Category   string  `json:"category"   yaml:"category"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Collection string  `json:"collection" yaml:"collection"`
}

// Thresholds drive the selector.
type Thresholds struct {
	Review       float64 `json:"review"        yaml:"review"`
	Secondary    float64 `json:"secondary"     yaml:"secondary"`
	MaxSecondary int     `json:"max_secondary" yaml:"max_secondary"`
}

// Elevation lifts the primary confidence when the schema evidence alone is
// strong and unambiguous: c' = c + Factor*(1-c). Factor 0 disables it.
type Elevation struct {
	Factor         float64 `json:"factor"           yaml:"factor"`
	MinSchemaScore float64 `json:"min_schema_score" yaml:"min_schema_score"`
	MinMargin      float64 `json:"min_margin"       yaml:"min_margin"`
}

// Keyword is a weighted lexical term. In YAML a bare string means weight 1.
type Keyword struct {
	Term   string  `json:"term"   yaml:"term"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// UnmarshalYAML accepts either a scalar term or a {term, weight} mapping.
func (k *Keyword) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Term = node.Value
		k.Weight = 1
		return nil
	}

	type plain Keyword
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("decode keyword: %w", err)
	}
	if p.Weight == 0 {
		p.Weight = 1
	}
	*k = Keyword(p)
	return nil
}

// Pattern is a structural shape recognizer voting for one category.
type Pattern struct {
	Name     string  `json:"name"     yaml:"name"`
	Regex    string  `json:"regex"    yaml:"regex"`
	Category string  `json:"category" yaml:"category"`
	Weight   float64 `json:"weight"   yaml:"weight"`
}

// FieldTable lists the field names that identify a category.
type FieldTable struct {
	Weight float64  `json:"weight" yaml:"weight"`
	Fields []string `json:"fields" yaml:"fields"`
}

// Subcategory is chosen by field and keyword evidence inside a category.
type Subcategory struct {
	Name     string   `json:"name"     yaml:"name"`
	Fields   []string `json:"fields"   yaml:"fields"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// CrossReferenceRule is a detector producing a secondary assignment when any
// indicator field is present or any transition keyword occurs.
type CrossReferenceRule struct {
	Name         string   `json:"name"                  yaml:"name"`
	Category     string   `json:"category"              yaml:"category"`
	Subcategory  string   `json:"subcategory,omitempty" yaml:"subcategory"`
	Relationship string   `json:"relationship"          yaml:"relationship"`
	Confidence   float64  `json:"confidence"            yaml:"confidence"`
	Fields       []string `json:"fields,omitempty"      yaml:"fields"`
	Keywords     []string `json:"keywords,omitempty"    yaml:"keywords"`
}

// SetDefaults fills unset thresholds and parameters.
func (c *Configuration) SetDefaults() {
	if c.Defaults.Confidence == 0 {
		c.Defaults.Confidence = defaultConfidence
	}
	if c.Thresholds.Review == 0 {
		c.Thresholds.Review = defaultReviewThreshold
	}
	if c.Thresholds.Secondary == 0 {
		c.Thresholds.Secondary = defaultSecondaryThreshold
	}
	if c.Thresholds.MaxSecondary == 0 {
		c.Thresholds.MaxSecondary = defaultMaxSecondary
	}
	if c.Elevation == nil {
		c.Elevation = &Elevation{
			Factor:         defaultElevationFactor,
			MinSchemaScore: defaultElevationMinScore,
			MinMargin:      defaultElevationMargin,
		}
	}
	if c.InvalidRecords == "" {
		c.InvalidRecords = InvalidReview
	}
}
