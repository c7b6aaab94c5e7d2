package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/cookbook/internal/recipes"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding validators on gin's engine.
// It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("difficulty", validateDifficulty)
	})
}

// fieldName reports fields by their json (or form) name in errors.
func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" {
		name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	}
	if name == "-" {
		return ""
	}
	return name
}

// validateDifficulty accepts easy, medium or hard in any case. Empty values
// are left to "required".
func validateDifficulty(fl validator.FieldLevel) bool {
	_, err := recipes.NormalizeDifficulty(fl.Field().String())
	return err == nil
}

// bindingError turns a binding failure into a client-facing message.
func bindingError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "difficulty":
		return recipes.ErrInvalidDifficulty.Error()
	case "min", "max":
		if field == "rating" {
			return recipes.ErrInvalidRating.Error()
		}
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
