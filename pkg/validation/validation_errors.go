package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// HasTag reports whether any field in err failed the given validator tag.
func HasTag(err error, tag string) bool {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false
	}
	for _, e := range validationErrors {
		if e.Tag() == tag {
			return true
		}
	}
	return false
}

// FieldsWithTag returns the names of the fields that failed the given tag,
// in declaration order.
func FieldsWithTag(err error, tag string) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	var fields []string
	for _, e := range validationErrors {
		if e.Tag() == tag {
			fields = append(fields, e.Field())
		}
	}
	return fields
}

// MissingFields lists the fields that failed "required".
func MissingFields(err error) []string {
	return FieldsWithTag(err, "required")
}
