package catalog

import (
	"maps"
	"slices"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}

	out := *c
	out.Categories = slices.Clone(c.Categories)
	if c.Elevation != nil {
		e := *c.Elevation
		out.Elevation = &e
	}
	out.Patterns = slices.Clone(c.Patterns)
	out.Shapes = maps.Clone(c.Shapes)
	out.Tables = maps.Clone(c.Tables)

	out.Keywords = cloneSliceMap(c.Keywords)
	out.Collections = cloneSliceMap(c.Collections)

	if c.Fields != nil {
		out.Fields = make(map[string]FieldTable, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = FieldTable{Weight: v.Weight, Fields: slices.Clone(v.Fields)}
		}
	}

	if c.RuleSets != nil {
		out.RuleSets = make(map[string][]domain.ValidationRule, len(c.RuleSets))
		for k, rules := range c.RuleSets {
			copied := make([]domain.ValidationRule, len(rules))
			for i, r := range rules {
				r.Definition.Params = maps.Clone(r.Definition.Params)
				copied[i] = r
			}
			out.RuleSets[k] = copied
		}
	}

	if c.Subcategories != nil {
		out.Subcategories = make(map[string][]Subcategory, len(c.Subcategories))
		for k, subs := range c.Subcategories {
			copied := make([]Subcategory, len(subs))
			for i, s := range subs {
				copied[i] = Subcategory{Name: s.Name, Fields: slices.Clone(s.Fields), Keywords: slices.Clone(s.Keywords)}
			}
			out.Subcategories[k] = copied
		}
	}

	if c.CrossReferences != nil {
		out.CrossReferences = make([]CrossReferenceRule, len(c.CrossReferences))
		for i, r := range c.CrossReferences {
			r.Fields = slices.Clone(r.Fields)
			r.Keywords = slices.Clone(r.Keywords)
			out.CrossReferences[i] = r
		}
	}

	return &out
}

func cloneSliceMap[T any](m map[string][]T) map[string][]T {
	if m == nil {
		return nil
	}
	out := make(map[string][]T, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
