package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Regex patterns
var (
	// local@domain.tld where no part contains whitespace or a second '@'.
	// \p{Z} and U+FEFF keep parity with browser-side \s.
	emailRegex = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)
)

// TagContactEmail is the validator tag backed by IsValidEmail.
const TagContactEmail = "contact_email"

// New returns a validator that reports JSON field names and knows the custom tags.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation(TagContactEmail, ContactEmail)
}

// IsValidEmail reports whether candidate has the local@domain.tld shape.
// It is a syntactic check only; nothing is resolved or delivered.
func IsValidEmail(candidate string) bool {
	return emailRegex.MatchString(candidate)
}

// ContactEmail validates an email field with IsValidEmail.
func ContactEmail(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Presence is the job of "required"
	}
	return IsValidEmail(val)
}
