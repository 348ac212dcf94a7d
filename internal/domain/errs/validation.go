package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation turns a validator failure into an invalid-kind error whose
// Fields map names each offending field. Other errors are wrapped as a plain
// invalid error.
func Validation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Invalid("%s", err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = describe(fe)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Error{
		Kind:    ErrInvalid,
		Message: "Invalid " + strings.Join(names, ", ") + ".",
		Fields:  fields,
	}
}

// Fields returns the per-field messages carried by err, if any.
func Fields(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be an email address"
	case "url", "http_url":
		return "must be a URL"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	default:
		return "failed " + fe.Tag()
	}
}

// jsonName lowercases the leading letters of a Go field name, so FeisID
// becomes feisID and Name becomes name.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	for i := range r {
		lower := strings.ToLower(string(r[i]))
		if lower == string(r[i]) {
			break
		}
		if i > 0 && i+1 < len(r) && strings.ToLower(string(r[i+1])) == string(r[i+1]) {
			break
		}
		r[i] = []rune(lower)[0]
	}
	return string(r)
}
