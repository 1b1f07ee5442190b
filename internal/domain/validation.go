package domain

// RuleKind selects how a ValidationRule is evaluated.
type RuleKind string

const (
	RuleRequiredField RuleKind = "required_field"
	RuleFieldType     RuleKind = "field_type"
	RuleBusiness      RuleKind = "business_rule"
)

// FieldType is the expected JSON shape for a field_type rule.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// RuleDefinition carries the kind-specific parameters of a rule.
type RuleDefinition struct {
	Field  string            `json:"field"            yaml:"field"`
	Type   FieldType         `json:"type,omitempty"   yaml:"type,omitempty"`
	Rule   string            `json:"rule,omitempty"   yaml:"rule,omitempty"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// ValidationRule is one declarative check. Higher priority runs first.
type ValidationRule struct {
	ID         string         `db:"rule_id"  json:"id"         yaml:"id"`
	Category   string         `db:"category" json:"category"   yaml:"category"`
	Kind       RuleKind       `db:"kind"     json:"kind"       yaml:"kind"`
	Definition RuleDefinition `db:"-"        json:"definition" yaml:",inline"`
	Priority   int            `db:"priority" json:"priority"   yaml:"priority"`
}

// ViolationClass groups violations for remediation suggestions.
type ViolationClass string

const (
	ViolationNone              ViolationClass = ""
	ViolationMissingField      ViolationClass = "missing_field"
	ViolationTypeMismatch      ViolationClass = "type_mismatch"
	ViolationNumericConstraint ViolationClass = "numeric_constraint"
	ViolationShapeMismatch     ViolationClass = "shape_mismatch"
	ViolationValueConstraint   ViolationClass = "value_constraint"
)

// ValidationOutcome is the result of one rule.
type ValidationOutcome struct {
	RuleID  string         `json:"rule_id"`
	Field   string         `json:"field,omitempty"`
	Passed  bool           `json:"passed"`
	Message string         `json:"message,omitempty"`
	Class   ViolationClass `json:"class,omitempty"`
}

// ValidationStatus summarises a report for assignments.
type ValidationStatus string

const (
	StatusValid       ValidationStatus = "valid"
	StatusInvalid     ValidationStatus = "invalid"
	StatusSkipped     ValidationStatus = "skipped"
	StatusUnvalidated ValidationStatus = "unvalidated"
)

// ValidationReport is the validator output for one category and payload.
type ValidationReport struct {
	Category    string              `json:"category"`
	Valid       bool                `json:"valid"`
	Confidence  float64             `json:"confidence"`
	Outcomes    []ValidationOutcome `json:"outcomes"`
	Suggestions []string            `json:"suggestions"`
	// Skipped means no rules were evaluated, which is not the same as passing.
	Skipped  bool     `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// Violations returns the messages of failed outcomes in evaluation order.
func (r *ValidationReport) Violations() []string {
	out := make([]string, 0)
	for _, o := range r.Outcomes {
		if !o.Passed {
			out = append(out, o.Message)
		}
	}
	return out
}

// Status maps the report onto a ValidationStatus.
func (r *ValidationReport) Status() ValidationStatus {
	switch {
	case r == nil:
		return StatusUnvalidated
	case r.Skipped:
		return StatusSkipped
	case r.Valid:
		return StatusValid
	default:
		return StatusInvalid
	}
}
