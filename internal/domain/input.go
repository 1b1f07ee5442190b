// Package domain holds the value types shared by the categorizer pipeline.
package domain

import (
	"maps"
	"strings"
)

// Format tags how a payload was submitted.
type Format string

const (
	FormatStructured Format = "structured"
	FormatText       Format = "text"
)

// ClassificationInput is one submission. Treat it as read-only once built.
type ClassificationInput struct {
	ID          string
	SubmitterID string
	Format      Format
	Payload     map[string]any
	Text        string
}

// NewStructuredInput copies payload so later caller mutations are not observed.
func NewStructuredInput(id, submitter string, payload map[string]any) *ClassificationInput {
	var copied map[string]any
	if payload != nil {
		copied = maps.Clone(payload)
	}
	return &ClassificationInput{ID: id, SubmitterID: submitter, Format: FormatStructured, Payload: copied}
}

// NewTextInput wraps free text.
func NewTextInput(id, submitter, text string) *ClassificationInput {
	return &ClassificationInput{ID: id, SubmitterID: submitter, Format: FormatText, Text: text}
}

// Empty reports whether there is nothing to classify at all. A structured
// payload with zero fields is not empty.
func (in *ClassificationInput) Empty() bool {
	if in == nil {
		return true
	}
	switch in.Format {
	case FormatStructured:
		return in.Payload == nil
	case FormatText:
		return strings.TrimSpace(in.Text) == ""
	default:
		return in.Payload == nil && strings.TrimSpace(in.Text) == ""
	}
}

// StringValues returns every string leaf of the payload, or the text itself
// for text input.
func (in *ClassificationInput) StringValues() []string {
	if in.Format == FormatText {
		return []string{in.Text}
	}
	var out []string
	walkValues(in.Payload, func(v any) {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	})
	return out
}

// FieldNames returns the lowercased key names of the payload, nested objects
// included. Keys holding null are skipped. Text input has none.
func (in *ClassificationInput) FieldNames() []string {
	if in.Format == FormatText {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	walkKeys(in.Payload, func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	})
	return out
}

// HasField reports whether a top-level field is present and non-null.
func (in *ClassificationInput) HasField(name string) bool {
	v, ok := in.Payload[name]
	return ok && v != nil
}

func walkValues(v any, fn func(any)) {
	switch t := v.(type) {
	case map[string]any:
		for _, child := range t {
			walkValues(child, fn)
		}
	case []any:
		for _, child := range t {
			walkValues(child, fn)
		}
	default:
		fn(t)
	}
}

func walkKeys(v any, fn func(string)) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if child == nil {
				continue
			}
			fn(k)
			walkKeys(child, fn)
		}
	case []any:
		for _, child := range t {
			walkKeys(child, fn)
		}
	}
}
