package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

var (
	// ErrUnknownPredicate is returned for business rule names nobody registered.
	ErrUnknownPredicate = errors.New("unknown business rule")
	// ErrInvalidParams is returned when a business rule's params are unusable.
	ErrInvalidParams = errors.New("invalid business rule params")
)

// PredicateFactory builds a predicate from rule params.
type PredicateFactory func(params map[string]string, shapes map[string]*regexp.Regexp) (catalog.Predicate, error)

type registration struct {
	factory PredicateFactory
	class   domain.ViolationClass
}

// Registry is the table of named business rule predicates. It implements
// catalog.PredicateResolver so unknown names fail when a configuration is
// compiled rather than when a record is validated.
type Registry struct {
	mu    sync.RWMutex
	table map[string]registration
}

// NewRegistry returns a registry holding the built-in predicates.
func NewRegistry() *Registry {
	r := &Registry{table: make(map[string]registration)}
	r.Register("positive_number", domain.ViolationNumericConstraint, constant(positiveNumber))
	r.Register("non_negative_number", domain.ViolationNumericConstraint, constant(nonNegativeNumber))
	r.Register("non_empty_string", domain.ViolationValueConstraint, constant(nonEmptyString))
	r.Register("matches_shape", domain.ViolationShapeMismatch, matchesShape)
	r.Register("one_of", domain.ViolationValueConstraint, oneOf)
	r.Register("max_length", domain.ViolationValueConstraint, maxLength)
	return r
}

// Register adds or replaces a predicate.
func (r *Registry) Register(name string, class domain.ViolationClass, factory PredicateFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[name] = registration{factory: factory, class: class}
}

// Names lists the registered predicates, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.table))
	for name := range r.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve implements catalog.PredicateResolver.
func (r *Registry) Resolve(name string, params map[string]string, shapes map[string]*regexp.Regexp) (catalog.Predicate, domain.ViolationClass, error) {
	r.mu.RLock()
	reg, ok := r.table[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ViolationNone, fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
	}

	pred, err := reg.factory(params, shapes)
	if err != nil {
		return nil, domain.ViolationNone, err
	}
	return pred, reg.class, nil
}

func constant(p catalog.Predicate) PredicateFactory {
	return func(map[string]string, map[string]*regexp.Regexp) (catalog.Predicate, error) {
		return p, nil
	}
}

// toFloat converts JSON-ish numerics. Strings are not numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func positiveNumber(v any) bool {
	f, ok := toFloat(v)
	return ok && !math.IsNaN(f) && f > 0
}

func nonNegativeNumber(v any) bool {
	f, ok := toFloat(v)
	return ok && !math.IsNaN(f) && f >= 0
}

func nonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func matchesShape(params map[string]string, shapes map[string]*regexp.Regexp) (catalog.Predicate, error) {
	var re *regexp.Regexp
	switch {
	case params["shape"] != "":
		re = shapes[params["shape"]]
		if re == nil {
			return nil, fmt.Errorf("%w: shape %q is not declared", ErrInvalidParams, params["shape"])
		}
	case params["pattern"] != "":
		compiled, err := regexp.Compile(params["pattern"])
		if err != nil {
			return nil, fmt.Errorf("%w: pattern: %w", ErrInvalidParams, err)
		}
		re = compiled
	default:
		return nil, fmt.Errorf("%w: matches_shape needs a shape or pattern", ErrInvalidParams)
	}

	return func(v any) bool {
		s, ok := v.(string)
		return ok && re.MatchString(s)
	}, nil
}

func oneOf(params map[string]string, _ map[string]*regexp.Regexp) (catalog.Predicate, error) {
	allowed := make(map[string]struct{})
	for _, v := range strings.Split(params["values"], ",") {
		if v = strings.TrimSpace(v); v != "" {
			allowed[v] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: one_of needs values", ErrInvalidParams)
	}

	return func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, found := allowed[s]
		return found
	}, nil
}

func maxLength(params map[string]string, _ map[string]*regexp.Regexp) (catalog.Predicate, error) {
	limit, err := strconv.Atoi(params["max"])
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("%w: max_length needs a non-negative integer max", ErrInvalidParams)
	}

	return func(v any) bool {
		s, ok := v.(string)
		return ok && utf8.RuneCountInString(s) <= limit
	}, nil
}
