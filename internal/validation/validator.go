// Package validation wraps a shared go-playground validator with the
// feedback-specific rules and converts failures into 400 API errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"feedback-hub/internal/models"
	"feedback-hub/internal/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Get returns the singleton validator.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("feedbacktag", func(fl validator.FieldLevel) bool {
			return models.IsKnownTag(fl.Field().String())
		})
		_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseRole(fl.Field().String())
			return ok
		})
	})
	return validate
}

// Struct validates s and returns a ValidationError describing the first
// failing fields, or nil.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return utils.ValidationError("Validation failed").WithDetails(err.Error())
	}

	details := make([]map[string]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, map[string]string{
			"field":   fe.Field(),
			"message": message(fe),
		})
	}
	return utils.ValidationError(message(fieldErrs[0])).WithDetails(details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "feedbacktag":
		return fmt.Sprintf("Invalid tag: %v", fe.Value())
	case "role":
		return "Invalid role value"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
