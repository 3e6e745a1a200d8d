package api

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a request value against its validate tags. Values that
// are not structs carry no tags and always pass.
func Validate(v any) error {
	if v == nil {
		return nil
	}
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return newValidationError(err)
	}
	return nil
}
