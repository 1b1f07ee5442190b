package validation

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

var suggestionTemplates = map[domain.ViolationClass]string{
	domain.ViolationMissingField:      "Add the missing field %s",
	domain.ViolationTypeMismatch:      "Check the type of field %s",
	domain.ViolationNumericConstraint: "Ensure %s is a positive value",
	domain.ViolationShapeMismatch:     "Check the format of %s",
	domain.ViolationValueConstraint:   "Check the allowed values for %s",
}

func suggest(class domain.ViolationClass, field string) string {
	tmpl, ok := suggestionTemplates[class]
	if !ok {
		return ""
	}
	return fmt.Sprintf(tmpl, field)
}
