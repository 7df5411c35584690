// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"bitwise74/seed-swap/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their form name so errors line up with the inputs
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	return v
}

// Struct runs the validate tags of s and returns every failure as an
// ordered apperr.FieldErrors list, or nil when s is valid.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var out apperr.FieldErrors
	for _, fe := range verrs {
		out = out.Add(fe.Field(), message(fe))
	}

	return out
}

func message(fe validator.FieldError) string {
	label := humanize(fe.StructField())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return "Please provide a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", label, fe.Param())
	case "alphanumunicode":
		return fmt.Sprintf("%s may only contain letters and numbers", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// humanize turns a Go field name like "VarietyName" into "Variety name"
func humanize(s string) string {
	var b strings.Builder

	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}
