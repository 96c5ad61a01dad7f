package validators

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"tprmgrc/internal/apperrors"

	"github.com/go-playground/validator/v10"
	nonstandard "github.com/go-playground/validator/v10/non-standard/validators"
)

// TagName is the struct tag request inputs declare their rules under. It is
// the tag gin's binding reads, so the same rules hold over HTTP and in-process.
const TagName = "binding"

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.SetTagName(TagName)
	Configure(v)
	return v
}

// Configure makes v report json or form field names and registers the
// notblank and risklevel rules
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("notblank", nonstandard.NotBlank)
	_ = v.RegisterValidation("risklevel", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
		case "", "low", "medium", "high", "critical":
			return true
		}
		return false
	})
}

// Struct checks the binding rules of an input and returns the first failure
func Struct(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return FromBinding(err)
	}
	return nil
}

// Email checks a single address reported under field
func Email(field, value string) error {
	if err := validate.Var(value, "required,email,max=255"); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return apperrors.Validation(field, message(fields[0]))
		}
		return apperrors.Validation(field, "is not a valid address")
	}
	return nil
}

// FromBinding maps a gin binding or validator error onto a Validation error
func FromBinding(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		return apperrors.Validation(fe.Field(), message(fe))
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperrors.Validation(field, "must be a "+typeErr.Type.String())
	}
	if errors.Is(err, io.EOF) {
		return apperrors.Validation("body", "is required")
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.Internal(err)
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return apperrors.Validation("body", "invalid JSON: "+err.Error())
	}
	return apperrors.Validation("request", err.Error())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "is not a valid address"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be below " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a URL"
	case "risklevel":
		return "must be low, medium, high or critical"
	}
	return "failed the " + fe.Tag() + " rule"
}
