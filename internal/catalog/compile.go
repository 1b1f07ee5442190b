package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	infraconfig "github.com/jonesrussell/north-cloud/categorizer/infrastructure/config"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

const (
	maxWeight = 1.0

	// bounds for structural pattern and schema field-table weights
	minPatternWeight = 0.6
	maxPatternWeight = 0.9
	minFieldWeight   = 0.8
	maxFieldWeight   = 0.9
)

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// ErrNoResolver is returned when compiling without a PredicateResolver.
var ErrNoResolver = errors.New("predicate resolver is required")

func invalid(field, format string, args ...any) error {
	return &infraconfig.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Compile validates cfg and builds a Snapshot. All problems are reported
// together, joined. cfg is copied and never retained.
func Compile(cfg *Configuration, resolver PredicateResolver) (*Snapshot, error) {
	if cfg == nil {
		return nil, invalid("configuration", "is required")
	}
	if resolver == nil {
		return nil, ErrNoResolver
	}

	cfg = cfg.Clone()
	cfg.SetDefaults()

	c := &compiler{cfg: cfg, resolver: resolver}
	snap := c.compile()
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	return snap, nil
}

type compiler struct {
	cfg      *Configuration
	resolver PredicateResolver
	priority map[string]int
	errs     []error
}

func (c *compiler) fail(field, format string, args ...any) {
	c.errs = append(c.errs, invalid(field, format, args...))
}

func (c *compiler) checkCategory(field, category string) bool {
	if _, ok := c.priority[category]; !ok {
		c.fail(field, "references undeclared category %q", category)
		return false
	}
	return true
}

func (c *compiler) compile() *Snapshot {
	cfg := c.cfg

	c.compileCategories()
	c.compileThresholds()

	snap := &Snapshot{
		Version:            cfg.Version,
		Categories:         slices.Clone(cfg.Categories),
		DefaultCategory:    cfg.Defaults.Category,
		DefaultConfidence:  cfg.Defaults.Confidence,
		DefaultCollection:  cfg.Defaults.Collection,
		ReviewThreshold:    cfg.Thresholds.Review,
		SecondaryThreshold: cfg.Thresholds.Secondary,
		MaxSecondary:       cfg.Thresholds.MaxSecondary,
		Elevation:          *cfg.Elevation,
		InvalidRecords:     cfg.InvalidRecords,
		priority:           c.priority,
		source:             cfg,
	}

	snap.Shapes = c.compileShapes()
	snap.Keywords = c.compileKeywords()
	snap.Patterns = c.compilePatterns()
	snap.FieldTables = c.compileFieldTables()
	snap.Tables, snap.Collections = c.compileStorage()
	snap.RuleSets = c.compileRuleSets(snap.Shapes)
	snap.Subcategories = c.compileSubcategories()
	snap.Detectors = c.compileDetectors()

	return snap
}

func (c *compiler) compileCategories() {
	cfg := c.cfg
	c.priority = make(map[string]int, len(cfg.Categories))

	if len(cfg.Categories) == 0 {
		c.fail("categories", "at least one category is required")
	}
	for i, name := range cfg.Categories {
		if strings.TrimSpace(name) == "" {
			c.fail(fmt.Sprintf("categories[%d]", i), "is empty")
			continue
		}
		if _, dup := c.priority[name]; dup {
			c.fail(fmt.Sprintf("categories[%d]", i), "duplicate category %q", name)
			continue
		}
		c.priority[name] = i
	}

	if cfg.Defaults.Category == "" {
		c.fail("defaults.category", "is required")
	} else {
		c.checkCategory("defaults.category", cfg.Defaults.Category)
	}
	if cfg.Defaults.Collection == "" {
		c.fail("defaults.collection", "is required")
	}
}

func (c *compiler) compileThresholds() {
	cfg := c.cfg
	if !inUnitInterval(cfg.Defaults.Confidence) {
		c.fail("defaults.confidence", "must be within [0, 1]")
	}
	if !inUnitInterval(cfg.Thresholds.Review) {
		c.fail("thresholds.review", "must be within [0, 1]")
	}
	if !inUnitInterval(cfg.Thresholds.Secondary) {
		c.fail("thresholds.secondary", "must be within [0, 1]")
	}
	if cfg.Thresholds.MaxSecondary < 0 {
		c.fail("thresholds.max_secondary", "must not be negative")
	}

	e := cfg.Elevation
	if !inUnitInterval(e.Factor) {
		c.fail("elevation.factor", "must be within [0, 1]")
	}
	if !inUnitInterval(e.MinSchemaScore) {
		c.fail("elevation.min_schema_score", "must be within [0, 1]")
	}
	if !inUnitInterval(e.MinMargin) {
		c.fail("elevation.min_margin", "must be within [0, 1]")
	}

	switch cfg.InvalidRecords {
	case InvalidReview, InvalidAccept:
	default:
		c.fail("invalid_records", "must be %q or %q", InvalidReview, InvalidAccept)
	}
}

func (c *compiler) compileShapes() map[string]*regexp.Regexp {
	shapes := make(map[string]*regexp.Regexp, len(c.cfg.Shapes))
	for name, expr := range c.cfg.Shapes {
		re, err := regexp.Compile(expr)
		if err != nil {
			c.fail("shapes."+name, "invalid regexp: %v", err)
			continue
		}
		shapes[name] = re
	}
	return shapes
}

func (c *compiler) compileKeywords() *KeywordIndex {
	for category, keywords := range c.cfg.Keywords {
		field := "keywords." + category
		c.checkCategory(field, category)
		for i, kw := range keywords {
			if normalizeTerm(kw.Term) == "" {
				c.fail(fmt.Sprintf("%s[%d]", field, i), "term is empty")
			}
			if kw.Weight <= 0 || math.IsNaN(kw.Weight) {
				c.fail(fmt.Sprintf("%s[%d]", field, i), "weight must be positive")
			}
		}
	}
	return newKeywordIndex(c.cfg.Keywords)
}

func (c *compiler) compilePatterns() []CompiledPattern {
	out := make([]CompiledPattern, 0, len(c.cfg.Patterns))
	for i, p := range c.cfg.Patterns {
		field := fmt.Sprintf("patterns[%d]", i)
		if p.Name != "" {
			field = "patterns." + p.Name
		}
		ok := c.checkCategory(field, p.Category)
		if !inRange(p.Weight, minPatternWeight, maxPatternWeight) {
			c.fail(field, "weight must be within [%g, %g]", minPatternWeight, maxPatternWeight)
			ok = false
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			c.fail(field, "invalid regexp: %v", err)
			ok = false
		}
		if ok {
			out = append(out, CompiledPattern{Name: p.Name, Category: p.Category, Weight: p.Weight, Regexp: re})
		}
	}
	return out
}

func (c *compiler) compileFieldTables() map[string]CompiledFieldTable {
	out := make(map[string]CompiledFieldTable, len(c.cfg.Fields))
	for category, table := range c.cfg.Fields {
		field := "fields." + category
		c.checkCategory(field, category)
		if !inRange(table.Weight, minFieldWeight, maxFieldWeight) {
			c.fail(field, "weight must be within [%g, %g]", minFieldWeight, maxFieldWeight)
		}
		names := make(map[string]struct{}, len(table.Fields))
		for _, f := range table.Fields {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				names[f] = struct{}{}
			}
		}
		if len(names) == 0 {
			c.fail(field, "at least one field is required")
		}
		out[category] = CompiledFieldTable{Weight: table.Weight, Fields: names}
	}
	return out
}

func (c *compiler) compileStorage() (map[string]string, map[string][]string) {
	cfg := c.cfg
	for _, category := range cfg.Categories {
		if cfg.Tables[category] == "" {
			c.fail("tables."+category, "every category needs a primary table")
		}
	}
	for category := range cfg.Tables {
		c.checkCategory("tables."+category, category)
	}

	collections := make(map[string][]string, len(cfg.Collections))
	for category, names := range cfg.Collections {
		c.checkCategory("collections."+category, category)
		collections[category] = dedupe(names)
	}
	return cfg.Tables, collections
}

func (c *compiler) compileRuleSets(shapes map[string]*regexp.Regexp) map[string][]CompiledRule {
	out := make(map[string][]CompiledRule, len(c.cfg.RuleSets))

	for category, rules := range c.cfg.RuleSets {
		base := "rule_sets." + category
		c.checkCategory(base, category)

		ids := make(map[string]struct{}, len(rules))
		compiled := make([]CompiledRule, 0, len(rules))
		for i, rule := range rules {
			field := fmt.Sprintf("%s[%d]", base, i)
			rule.Category = category
			if rule.ID == "" {
				c.fail(field, "id is required")
			} else if _, dup := ids[rule.ID]; dup {
				c.fail(field, "duplicate rule id %q", rule.ID)
			}
			ids[rule.ID] = struct{}{}

			if cr, ok := c.compileRule(field, rule, shapes); ok {
				compiled = append(compiled, cr)
			}
		}

		// Stable sort keeps declaration order among equal priorities.
		slices.SortStableFunc(compiled, func(a, b CompiledRule) int {
			return cmp.Compare(b.Priority, a.Priority)
		})
		out[category] = compiled
	}
	return out
}

func (c *compiler) compileRule(field string, rule domain.ValidationRule, shapes map[string]*regexp.Regexp) (CompiledRule, bool) {
	def := rule.Definition
	if def.Field == "" {
		c.fail(field, "field is required")
		return CompiledRule{}, false
	}

	switch rule.Kind {
	case domain.RuleRequiredField:
		return CompiledRule{ValidationRule: rule, Class: domain.ViolationMissingField}, true
	case domain.RuleFieldType:
		if !def.Type.Valid() {
			c.fail(field, "unknown field type %q", def.Type)
			return CompiledRule{}, false
		}
		return CompiledRule{ValidationRule: rule, Class: domain.ViolationTypeMismatch}, true
	case domain.RuleBusiness:
		pred, class, err := c.resolver.Resolve(def.Rule, def.Params, shapes)
		if err != nil {
			c.errs = append(c.errs, fmt.Errorf("%w: %w", invalid(field, "business rule %q", def.Rule), err))
			return CompiledRule{}, false
		}
		return CompiledRule{ValidationRule: rule, Predicate: pred, Class: class}, true
	default:
		c.fail(field, "unknown rule kind %q", rule.Kind)
		return CompiledRule{}, false
	}
}

func (c *compiler) compileSubcategories() map[string][]CompiledSubcategory {
	out := make(map[string][]CompiledSubcategory, len(c.cfg.Subcategories))
	for category, subs := range c.cfg.Subcategories {
		base := "subcategories." + category
		c.checkCategory(base, category)
		compiled := make([]CompiledSubcategory, 0, len(subs))
		for i, s := range subs {
			if s.Name == "" {
				c.fail(fmt.Sprintf("%s[%d]", base, i), "name is required")
				continue
			}
			compiled = append(compiled, CompiledSubcategory{
				Name:     s.Name,
				Fields:   lowerAll(s.Fields),
				Keywords: padAll(s.Keywords),
			})
		}
		out[category] = compiled
	}
	return out
}

func (c *compiler) compileDetectors() []CompiledDetector {
	out := make([]CompiledDetector, 0, len(c.cfg.CrossReferences))
	for i, r := range c.cfg.CrossReferences {
		field := fmt.Sprintf("cross_references[%d]", i)
		if r.Name != "" {
			field = "cross_references." + r.Name
		}
		ok := c.checkCategory(field, r.Category)
		if r.Relationship == "" {
			c.fail(field, "relationship is required")
			ok = false
		}
		if r.Confidence <= 0 || r.Confidence > maxWeight {
			c.fail(field, "confidence must be within (0, 1]")
			ok = false
		}
		if len(r.Fields) == 0 && len(r.Keywords) == 0 {
			c.fail(field, "needs at least one indicator field or keyword")
			ok = false
		}
		if !ok {
			continue
		}

		sub := r.Subcategory
		if sub == "" {
			sub = domain.DefaultSubcategory
		}
		out = append(out, CompiledDetector{
			Name:         r.Name,
			Category:     r.Category,
			Subcategory:  sub,
			Relationship: r.Relationship,
			Confidence:   r.Confidence,
			Fields:       lowerAll(r.Fields),
			Keywords:     padAll(r.Keywords),
		})
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func padAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := normalizeTerm(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
