package task

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayload is returned by Typed handlers whose payload fails its validate tags
var ErrInvalidPayload = errors.New("invalid task payload")

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePayload checks the validate tags of a struct payload; other kinds pass
func validatePayload(name string, payload any) error {
	if reflect.Indirect(reflect.ValueOf(payload)).Kind() != reflect.Struct {
		return nil
	}
	err := payloadValidator.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w for task %q: %w", ErrInvalidPayload, name, err)
	}
	problems := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		problems[i] = fe.Field() + " " + fe.Tag()
	}
	return fmt.Errorf("%w for task %q: %s", ErrInvalidPayload, name, strings.Join(problems, ", "))
}
