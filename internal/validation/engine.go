// Package validation checks a record against the rule set of its category.
package validation

import (
	"fmt"
	"math"
	"reflect"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// violationPenalty is the confidence lost per violated rule.
const violationPenalty = 0.2

const unstructuredWarning = "input is unstructured; field rules were not evaluated"

// Engine evaluates rule sets. It holds no configuration of its own: every call
// receives the snapshot to use.
type Engine struct {
	logger infralogger.Logger
}

// NewEngine creates an Engine.
func NewEngine(log infralogger.Logger) *Engine {
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Engine{logger: log}
}

// Confidence is max(0, 1 - 0.2 * violations).
func Confidence(violations int) float64 {
	return math.Max(0, 1-violationPenalty*float64(violations))
}

// Validate checks in against category's rules. Text input is skipped.
func (e *Engine) Validate(snap *catalog.Snapshot, category string, in *domain.ClassificationInput) domain.ValidationReport {
	if in != nil && in.Format == domain.FormatText {
		return skippedReport(category, unstructuredWarning)
	}
	var payload map[string]any
	if in != nil {
		payload = in.Payload
	}
	return e.ValidatePayload(snap, category, payload)
}

// ValidatePayload checks payload against category's rules. A category with no
// rule set yields a skipped report with a warning, never an error.
func (e *Engine) ValidatePayload(snap *catalog.Snapshot, category string, payload map[string]any) domain.ValidationReport {
	rules, ok := snap.RuleSet(category)
	if !ok {
		e.logger.Warn("No rule set for category, validation skipped",
			infralogger.String("category", category),
			infralogger.String("snapshot_version", snap.Version),
		)
		return skippedReport(category, fmt.Sprintf("%v: %s", domain.ErrRuleLookupMissing, category))
	}

	report := domain.ValidationReport{
		Category:    category,
		Outcomes:    make([]domain.ValidationOutcome, 0, len(rules)),
		Suggestions: make([]string, 0),
	}

	violations := 0
	seen := make(map[string]struct{})
	for i := range rules {
		outcome := evaluate(&rules[i], payload)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Passed {
			continue
		}
		violations++
		if s := suggest(outcome.Class, outcome.Field); s != "" {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				report.Suggestions = append(report.Suggestions, s)
			}
		}
	}

	report.Valid = violations == 0
	report.Confidence = Confidence(violations)

	if violations > 0 {
		e.logger.Debug("Validation violations",
			infralogger.String("category", category),
			infralogger.Int("violations", violations),
		)
	}
	return report
}

func skippedReport(category, warning string) domain.ValidationReport {
	return domain.ValidationReport{
		Category:    category,
		Valid:       true,
		Confidence:  1,
		Outcomes:    []domain.ValidationOutcome{},
		Suggestions: []string{},
		Skipped:     true,
		Warnings:    []string{warning},
	}
}

func evaluate(rule *catalog.CompiledRule, payload map[string]any) domain.ValidationOutcome {
	field := rule.Definition.Field
	value, present := payload[field]
	present = present && value != nil

	out := domain.ValidationOutcome{RuleID: rule.ID, Field: field, Passed: true}

	switch rule.Kind {
	case domain.RuleRequiredField:
		if !present {
			out.Passed = false
			out.Class = domain.ViolationMissingField
			out.Message = fmt.Sprintf("field %s is required", field)
		}
	case domain.RuleFieldType:
		// Absent fields are the required_field rule's concern.
		if present && !hasType(value, rule.Definition.Type) {
			out.Passed = false
			out.Class = domain.ViolationTypeMismatch
			out.Message = fmt.Sprintf("field %s must be %s, got %s", field, rule.Definition.Type, typeName(value))
		}
	case domain.RuleBusiness:
		if present && !rule.Predicate(value) {
			out.Passed = false
			out.Class = rule.Class
			out.Message = fmt.Sprintf("field %s fails %s", field, rule.Definition.Rule)
		}
	}
	return out
}

func hasType(v any, want domain.FieldType) bool {
	switch want {
	case domain.TypeString:
		_, ok := v.(string)
		return ok
	case domain.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case domain.TypeNumber:
		_, ok := toFloat(v)
		return ok
	case domain.TypeArray:
		k := reflect.TypeOf(v).Kind()
		return k == reflect.Slice || k == reflect.Array
	case domain.TypeObject:
		return reflect.TypeOf(v).Kind() == reflect.Map
	default:
		return false
	}
}

func typeName(v any) string {
	switch {
	case hasType(v, domain.TypeString):
		return string(domain.TypeString)
	case hasType(v, domain.TypeBoolean):
		return string(domain.TypeBoolean)
	case hasType(v, domain.TypeNumber):
		return string(domain.TypeNumber)
	case hasType(v, domain.TypeArray):
		return string(domain.TypeArray)
	case hasType(v, domain.TypeObject):
		return string(domain.TypeObject)
	default:
		return fmt.Sprintf("%T", v)
	}
}
