package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their koanf keys, so a failure names the
// same path an operator would set in YAML or through APP_ variables.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Validate checks the loaded configuration. The service refuses to start on
// any failure; every offending key is listed, one per line.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		lines = append(lines, describe(fe))
	}

	return fmt.Errorf("invalid configuration:\n  %s", strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	key := keyPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, fe.Param())
	case "required_unless":
		return fmt.Sprintf("%s is required unless %s", key, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", key, fe.Param())
	case "min":
		return fmt.Sprintf("%s is below the minimum of %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s is above the maximum of %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s is not a valid URL: %v", key, fe.Value())
	default:
		return fmt.Sprintf("%s fails %q", key, fe.Tag())
	}
}

// keyPath drops the root type from a validator namespace:
// "Config.sync.max_items" becomes "sync.max_items".
func keyPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}

	return namespace
}
