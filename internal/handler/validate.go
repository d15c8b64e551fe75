package handler

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage flattens validation errors into a single client message.
func validationMessage(err error) string {
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		return "Invalid request: " + err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.TrimPrefix(fe.Namespace(), "calculateRequest.")
		rule := fe.Tag()
		if p := fe.Param(); p != "" {
			rule += "=" + p
		}
		parts = append(parts, field+" failed "+rule)
	}
	return "Invalid request: " + strings.Join(parts, "; ")
}
