package assignment

import (
	"strings"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// evidence is the payload view shared by detectors and subcategory rules.
type evidence struct {
	fields map[string]struct{}
	text   string
}

func newEvidence(in *domain.ClassificationInput) evidence {
	ev := evidence{fields: make(map[string]struct{})}
	if in == nil {
		return ev
	}
	for _, f := range in.FieldNames() {
		ev.fields[f] = struct{}{}
	}

	values := in.StringValues()
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		normalized = append(normalized, catalog.NormalizeText(v))
	}
	ev.text = strings.Join(normalized, "")
	return ev
}

func (ev evidence) hasField(name string) bool {
	_, ok := ev.fields[name]
	return ok
}

// count returns how many of fields are present plus how many terms occur.
func (ev evidence) count(fields, terms []string) int {
	n := 0
	for _, f := range fields {
		if ev.hasField(f) {
			n++
		}
	}
	for _, t := range terms {
		if catalog.ContainsTerm(ev.text, t) {
			n++
		}
	}
	return n
}

func (ev evidence) matchesAny(fields, terms []string) bool {
	for _, f := range fields {
		if ev.hasField(f) {
			return true
		}
	}
	for _, t := range terms {
		if catalog.ContainsTerm(ev.text, t) {
			return true
		}
	}
	return false
}
