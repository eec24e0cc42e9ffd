package main

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/anvil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks v's validate tags and turns field failures into a 422.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return anvil.ErrBadRequest("Invalid request", anvil.WithError(err))
	}

	fields := make(anvil.ValidationErrors, len(verrs))
	for _, fe := range verrs {
		fields.Add(fe.Field(), fieldMessage(fe))
	}
	return anvil.ErrValidation(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	}
	return "is invalid (" + fe.Tag() + ")"
}
