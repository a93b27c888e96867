// Package validation wraps go-playground/validator with the project's error
// types and field naming (JSON tag names in messages).
package validation

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"pipeline-builder/internal/common/errors"
)

// Validator validates tagged structs
type Validator struct {
	validate *validator.Validate
}

// FieldError is one failed rule, keyed by the JSON field name
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

var (
	defaultValidator *Validator
	defaultOnce      sync.Once
)

// Default returns the shared validator
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// New creates a validator with the custom rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	_ = v.RegisterValidation("base_url", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	})

	return &Validator{validate: v}
}

// Struct validates s and returns a ValidationError describing every failure
func (v *Validator) Struct(s interface{}) error {
	fieldErrors := v.FieldErrors(s)
	if len(fieldErrors) == 0 {
		return nil
	}
	return errors.ValidationError(joinMessages(fieldErrors))
}

// Precondition validates s and reports failures as a PreconditionError, for
// actions that must be refused before any request is made
func (v *Validator) Precondition(s interface{}) error {
	fieldErrors := v.FieldErrors(s)
	if len(fieldErrors) == 0 {
		return nil
	}
	return errors.PreconditionError(joinMessages(fieldErrors))
}

// FieldErrors returns the structured failures for s, or nil when valid
func (v *Validator) FieldErrors(s interface{}) []FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	result := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		result = append(result, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: formatFieldError(fe),
		})
	}
	return result
}

func joinMessages(fieldErrors []FieldError) string {
	if len(fieldErrors) == 1 {
		return fieldErrors[0].Message
	}
	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "min":
		if err.Kind() == reflect.Slice || err.Kind() == reflect.Map {
			return fmt.Sprintf("field '%s' must contain at least %s item(s)", err.Field(), err.Param())
		}
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	case "base_url":
		return fmt.Sprintf("field '%s' must be an http(s) URL with a host", err.Field())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}
