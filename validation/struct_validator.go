package validation

import (
	"fmt"
	"strings"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/dkoca/meshkit/errors"
)

var structValidator = govalidator.New(govalidator.WithRequiredStructEnabled())

// ValidateStruct validates a struct using `validate` tags and returns a
// VALIDATION_ERROR AppError listing each failing field, or nil.
func ValidateStruct(s any) *errors.AppError {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(govalidator.ValidationErrors)
	if !ok {
		return errors.Validation(err.Error())
	}

	v := New()
	for _, fe := range verrs {
		v.AddError(strings.ToLower(fe.Field()), messageForTag(fe))
	}
	return v.Validate()
}

func messageForTag(fe govalidator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "hostname", "hostname_rfc1123":
		return "must be a valid hostname"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
